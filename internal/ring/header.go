package ring

import "sync/atomic"

// Head/Tail offsets within a ring header, per abi.RingHeader's layout.
const (
	headOffset = 16
	tailOffset = 24
)

// loadHead and loadTail perform an atomic load of the 8-byte counter at the
// matching offset in the host's own mapping. This module never writes Head
// or Tail after initialization — those belong to whichever side is
// configured as producer or consumer of this ring — but reading them
// atomically is still required: a plain load racing the other side's
// atomic store is undefined behavior even though the bytes happen to be
// aligned. An atomic load of an aligned word already carries the
// acquire-side guarantee a consumer needs to see a matching store's prior
// writes, so there is nothing further to hand-roll here (no extra fence,
// unlike the cgo sfence/mfence wrappers the teacher's io_uring path
// carries for its own SQ/CQ handoff).
func (s *Store) loadHead() uint64 {
	p := (*uint64)(ptrAt(s.kaddr, headOffset))
	return atomic.LoadUint64(p)
}

func (s *Store) loadTail() uint64 {
	p := (*uint64)(ptrAt(s.kaddr, tailOffset))
	return atomic.LoadUint64(p)
}
