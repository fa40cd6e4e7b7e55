package logger

import (
	"os"
	"strings"
	"testing"

	"github.com/dbsmedya/synthgen/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string // String representation of zapcore.Level
	}{
		{"debug", "debug"},
		{"info", "info"},
		{"", "info"}, // empty defaults to info
		{"warn", "warn"},
		{"error", "error"},
		{"unknown", "info"}, // unknown defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level := parseLevel(tt.input)
			if level.String() != tt.expected {
				t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, level.String(), tt.expected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name: "json format info level",
			cfg: &config.LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			wantErr: false,
		},
		{
			name: "text format debug level",
			cfg: &config.LoggingConfig{
				Level:  "debug",
				Format: "text",
				Output: "stdout",
			},
			wantErr: false,
		},
		{
			name: "stderr output",
			cfg: &config.LoggingConfig{
				Level:  "error",
				Format: "text",
				Output: "stderr",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if logger == nil && !tt.wantErr {
				t.Error("New() returned nil logger without error")
			}
			if logger != nil {
				_ = logger.Sync()
			}
		})
	}
}

func TestNewDefault(t *testing.T) {
	logger := NewDefault()
	if logger == nil {
		t.Fatal("NewDefault() returned nil")
	}

	// Should be able to log without panic
	logger.Info("test message")
	_ = logger.Sync()
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	if logger == nil {
		t.Fatal("NewNop() returned nil")
	}
	logger.Infow("discarded", "key", "value")
}

func TestContextMethods(t *testing.T) {
	cfg := &config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	tests := []struct {
		name    string
		derived *Logger
	}{
		{"WithTable", logger.WithTable("patients")},
		{"WithQuery", logger.WithQuery("visit_counts")},
		{"WithGenerator", logger.WithGenerator("integer")},
		{"WithPass", logger.WithPass(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.derived == nil {
				t.Fatalf("%s returned nil", tt.name)
			}
			if tt.derived == logger {
				t.Errorf("%s should return a new logger instance", tt.name)
			}
			tt.derived.Info("test with context")
		})
	}
	_ = logger.Sync()
}

func TestChaining(t *testing.T) {
	cfg := &config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	chainedLogger := logger.WithPass(2).WithTable("visits").WithGenerator("choice")
	if chainedLogger == nil {
		t.Fatalf("Chained logger is nil")
	}

	chainedLogger.Info("test chained context")
	_ = logger.Sync()
}

func TestBuildEncoder(t *testing.T) {
	if buildEncoder("json") == nil {
		t.Error("buildEncoder('json') returned nil")
	}
	if buildEncoder("text") == nil {
		t.Error("buildEncoder('text') returned nil")
	}
	if buildEncoder("unknown") == nil {
		t.Error("buildEncoder('unknown') returned nil")
	}
}

func TestBuildWriters(t *testing.T) {
	if buildWriters("stdout") == nil {
		t.Error("buildWriters('stdout') returned nil")
	}
	if buildWriters("stderr") == nil {
		t.Error("buildWriters('stderr') returned nil")
	}
	if buildWriters("") == nil {
		t.Error("buildWriters('') returned nil")
	}
}

func TestLoggingOutput(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "logger-test-*.json")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	_ = tmpFile.Close()
	defer func() { _ = os.Remove(tmpFile.Name()) }()

	cfg := &config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: tmpFile.Name(),
	}

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("test info message")
	logger.Warn("test warn message")
	logger.WithTable("patients").Info("message with table context")

	_ = logger.Sync()

	content, err := os.ReadFile(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	contentStr := string(content)
	if !strings.Contains(contentStr, "test info message") {
		t.Error("Log file should contain 'test info message'")
	}
	if !strings.Contains(contentStr, "test warn message") {
		t.Error("Log file should contain 'test warn message'")
	}
	if !strings.Contains(contentStr, "patients") {
		t.Error("Log file should contain table context 'patients'")
	}
}
