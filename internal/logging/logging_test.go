package logging

import "testing"

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "json")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if logger == nil {
		t.Fatal("Expected a logger")
	}
	logger.WithNodeID("node-1").Debug("test")
	logger.WithKey("k").Debug("test")
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	if _, err := NewLogger("nope", "json"); err == nil {
		t.Error("Expected an error for an invalid level")
	}
}

func TestNewLoggerConsoleFormat(t *testing.T) {
	if _, err := NewLogger("info", "console"); err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
}
