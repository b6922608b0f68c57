package util

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func saveLoggerState() (io.Writer, logrus.Level) {
	return Logger.Out, Logger.Level
}

func restoreLoggerState(out io.Writer, level logrus.Level) {
	Logger.SetOutput(out)
	Logger.SetLevel(level)
}

func TestSetLogLevel(t *testing.T) {
	out, level := saveLoggerState()
	defer restoreLoggerState(out, level)

	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := SetLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetLogLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
		})
	}
}

func TestWithHostAddsField(t *testing.T) {
	out, level := saveLoggerState()
	defer restoreLoggerState(out, level)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	Logger.SetLevel(logrus.InfoLevel)

	WithHost("10.0.0.7").Infof("config updated")

	got := buf.String()
	if !strings.Contains(got, "host=10.0.0.7") {
		t.Errorf("log line missing host field: %q", got)
	}
	if !strings.Contains(got, "config updated") {
		t.Errorf("log line missing message: %q", got)
	}
}

func TestDebugSuppressedAtWarn(t *testing.T) {
	out, level := saveLoggerState()
	defer restoreLoggerState(out, level)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	if err := SetLogLevel("warn"); err != nil {
		t.Fatal(err)
	}

	Debugf("should not appear")
	Warnf("should appear")

	got := buf.String()
	if strings.Contains(got, "should not appear") {
		t.Errorf("debug message leaked at warn level: %q", got)
	}
	if !strings.Contains(got, "should appear") {
		t.Errorf("warn message missing: %q", got)
	}
}
