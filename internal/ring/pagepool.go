package ring

import "sync"

// pagePool hands out scratch page-sized buffers for building the bytes that
// get copied into a frame's mmap'd memory. Every scratch buffer is exactly
// one host page, so unlike the teacher's queue.pool (which buckets across
// several I/O sizes) this pool carries a single size class.
var pagePool = sync.Pool{
	New: func() any {
		b := make([]byte, PageSize)
		return &b
	},
}

// GetPage returns a zeroed page-sized scratch buffer. Caller must call
// PutPage when done.
func GetPage() []byte {
	buf := *(pagePool.Get().(*[]byte))
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// PutPage returns a scratch buffer to the pool.
func PutPage(buf []byte) {
	if cap(buf) != PageSize {
		return
	}
	buf = buf[:PageSize]
	pagePool.Put(&buf)
}
