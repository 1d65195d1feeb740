package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func newBufferLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{
		Level:  level,
		Pretty: false,
		Output: &buf,
	}), &buf
}

func TestNew(t *testing.T) {
	l := New(DefaultConfig())

	if l == nil {
		t.Fatal("New() returned nil")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != WarnLevel {
		t.Errorf("Level = %v, want WarnLevel", cfg.Level)
	}
	if !cfg.Pretty {
		t.Error("Pretty should be true by default")
	}
	if cfg.Output == nil {
		t.Error("Output should not be nil")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("dropped")
	l.WithEndpoint("ws://x").Info("dropped")
}

func TestLogger_WithComponent(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)

	l.WithComponent("probe").Info("test message")

	if !strings.Contains(buf.String(), "probe") {
		t.Errorf("Output should contain component: %s", buf.String())
	}
}

func TestLogger_WithEndpointAndSession(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)

	l.WithEndpoint("wss://echo.example.test/ws").WithSession("abc-123").Info("connected")

	output := buf.String()
	if !strings.Contains(output, "wss://echo.example.test/ws") {
		t.Errorf("Output should contain endpoint: %s", output)
	}
	if !strings.Contains(output, "abc-123") {
		t.Errorf("Output should contain session: %s", output)
	}
}

func TestLogger_WithField(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)

	l.WithField("custom_field", "custom_value").Info("test message")

	if !strings.Contains(buf.String(), "custom_value") {
		t.Errorf("Output should contain custom_value: %s", buf.String())
	}
}

func TestLogger_WithError(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)

	l.WithError(errors.New("kaput")).Info("error context")

	if !strings.Contains(buf.String(), "kaput") {
		t.Errorf("Output should contain error: %s", buf.String())
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(WarnLevel)

	l.Debug("debug")
	l.Info("info")
	l.Warn("warning")
	l.Error("error")

	output := buf.String()
	if strings.Contains(output, `"debug"`) {
		t.Error("Debug should be filtered")
	}
	if strings.Contains(output, `"info"`) {
		t.Error("Info should be filtered")
	}
	if !strings.Contains(output, "warning") {
		t.Error("Warning should be present")
	}
	if !strings.Contains(output, "error") {
		t.Error("Error should be present")
	}
}

func TestLogger_Formatted(t *testing.T) {
	l, buf := newBufferLogger(DebugLevel)

	l.Debugf("debug %s %d", "test", 123)
	l.Infof("info %s", "formatted")
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	output := buf.String()
	for _, want := range []string{"debug test 123", "info formatted", "warn 3", "error 4"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output should contain %q: %s", want, output)
		}
	}
}

func TestLogger_HandshakeEvent(t *testing.T) {
	l, buf := newBufferLogger(DebugLevel)

	resp := &http.Response{
		StatusCode: http.StatusSwitchingProtocols,
		Header:     http.Header{"Upgrade": []string{"websocket"}},
	}
	l.HandshakeEvent("wss://echo.example.test/ws", resp, 25*time.Millisecond)

	output := buf.String()
	if !strings.Contains(output, "101") {
		t.Errorf("Output should contain status code: %s", output)
	}
	if !strings.Contains(output, "hdr_Upgrade") {
		t.Errorf("Output should contain response headers: %s", output)
	}
}

func TestLogger_HandshakeEvent_NilResponse(t *testing.T) {
	l, buf := newBufferLogger(DebugLevel)

	l.HandshakeEvent("wss://echo.example.test/ws", nil, time.Second)

	if !strings.Contains(buf.String(), "Handshake") {
		t.Errorf("Output should contain message: %s", buf.String())
	}
}

func TestLogger_FrameAndControlEvents(t *testing.T) {
	l, buf := newBufferLogger(DebugLevel)

	l.FrameEvent("text", 7, 5)
	l.ControlEvent("ping", "hb")

	output := buf.String()
	if !strings.Contains(output, `"seq":7`) {
		t.Errorf("Output should contain seq: %s", output)
	}
	if !strings.Contains(output, "ping") {
		t.Errorf("Output should contain control kind: %s", output)
	}
}

func TestLogger_ErrorEvent(t *testing.T) {
	l, buf := newBufferLogger(ErrorLevel)

	l.ErrorEvent(errors.New("refused"), "wss://echo.example.test/ws", "dial")

	output := buf.String()
	if !strings.Contains(output, "dial") {
		t.Errorf("Output should contain operation: %s", output)
	}
	if !strings.Contains(output, "refused") {
		t.Errorf("Output should contain error: %s", output)
	}
}

func TestLogger_StatsEvent(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)

	l.StatsEvent(map[string]interface{}{
		"messages_received": 2,
	})

	if !strings.Contains(buf.String(), "messages_received") {
		t.Errorf("Output should contain stats: %s", buf.String())
	}
}

func TestLogger_SetLevel(t *testing.T) {
	l, buf := newBufferLogger(DebugLevel)

	l.Debug("should appear")
	l.SetLevel(ErrorLevel)
	l.Debug("should not appear")

	output := buf.String()
	if !strings.Contains(output, "should appear") {
		t.Error("First debug should appear")
	}
	if strings.Contains(output, "should not appear") {
		t.Error("Debug after SetLevel(Error) should be filtered")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"trace", TraceLevel},
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"error", ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if err != nil {
				t.Fatalf("ParseLevel() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGlobalLogger(t *testing.T) {
	if Global() == nil {
		t.Fatal("Global() returned nil")
	}

	l, buf := newBufferLogger(InfoLevel)
	SetGlobal(l)
	defer SetGlobal(NewDefault())

	Global().Info("global test")

	if !strings.Contains(buf.String(), "global test") {
		t.Errorf("Output should contain message: %s", buf.String())
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel)

	l.Info("json test")

	var data map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Errorf("Output is not valid JSON: %v", err)
	}
	if data["message"] != "json test" {
		t.Errorf("Message = %v, want 'json test'", data["message"])
	}
	if data["level"] != "info" {
		t.Errorf("Level = %v, want 'info'", data["level"])
	}
}
