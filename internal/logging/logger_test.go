package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{
			name: "json format",
			config: &Config{
				Level:  LevelInfo,
				Format: "json",
				Output: &bytes.Buffer{},
			},
		},
		{
			name: "text format",
			config: &Config{
				Level:  LevelDebug,
				Format: "text",
				Output: &bytes.Buffer{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			if logger == nil {
				t.Error("NewLogger() returned nil")
			}
		})
	}
}

func TestLoggerWithContext(t *testing.T) {
	var buf bytes.Buffer
	config := &Config{
		Level:   LevelDebug,
		Format:  "text",
		Output:  &buf,
		Sync:    true,
		NoColor: true,
	}

	logger := NewLogger(config)

	instanceLogger := logger.WithInstance(42)
	instanceLogger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "instance=42") {
		t.Errorf("Expected instance=42 in output, got: %s", output)
	}

	buf.Reset()
	regionLogger := instanceLogger.WithRegion("submit")
	regionLogger.Info("region message")

	output = buf.String()
	if !strings.Contains(output, "instance=42") {
		t.Errorf("Expected instance=42 in region logger output, got: %s", output)
	}
	if !strings.Contains(output, "region=submit") {
		t.Errorf("Expected region=submit in output, got: %s", output)
	}
}

func TestLoggerWithRequest(t *testing.T) {
	var buf bytes.Buffer
	config := &Config{
		Level:   LevelDebug,
		Format:  "text",
		Output:  &buf,
		Sync:    true,
		NoColor: true,
	}

	logger := NewLogger(config)
	requestLogger := logger.WithRequest(123, "create")
	requestLogger.Debug("processing request")

	output := buf.String()
	if !strings.Contains(output, "corr_id=123") {
		t.Errorf("Expected corr_id=123 in output, got: %s", output)
	}
	if !strings.Contains(output, "op=create") {
		t.Errorf("Expected op=create in output, got: %s", output)
	}
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	config := &Config{
		Level:   LevelDebug,
		Format:  "text",
		Output:  &buf,
		Sync:    true,
		NoColor: true,
	}

	logger := NewLogger(config)
	testErr := errors.New("test error")
	errorLogger := logger.WithError(testErr)
	errorLogger.Error("operation failed")

	output := buf.String()
	if !strings.Contains(output, "test error") {
		t.Errorf("Expected 'test error' in output, got: %s", output)
	}
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	config := &Config{
		Level:   LevelDebug,
		Format:  "text",
		Output:  &buf,
		Sync:    true,
		NoColor: true,
	}

	SetDefault(NewLogger(config))

	Debug("debug message", "key", "value")
	output := buf.String()
	if !strings.Contains(output, "debug message") {
		t.Errorf("Expected debug message, got: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("Expected key=value, got: %s", output)
	}

	buf.Reset()
	Info("info message")
	output = buf.String()
	if !strings.Contains(output, "info message") {
		t.Errorf("Expected info message, got: %s", output)
	}

	buf.Reset()
	Warn("warning message")
	output = buf.String()
	if !strings.Contains(output, "warning message") {
		t.Errorf("Expected warning message, got: %s", output)
	}

	buf.Reset()
	Error("error message")
	output = buf.String()
	if !strings.Contains(output, "error message") {
		t.Errorf("Expected error message, got: %s", output)
	}
}

func TestSetDebugRaisesDefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelInfo, Format: "text", Output: &buf}))

	Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug message should be suppressed at LevelInfo")
	}

	SetDebug(true)
	t.Cleanup(func() { SetDebug(false) })

	buf.Reset()
	Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected debug message after SetDebug(true), got: %s", buf.String())
	}
}
