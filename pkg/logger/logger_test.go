package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestStderrLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		logFn   func(l *StderrLogger)
		want    string
		silent  bool
	}{
		{
			name:    "error always emitted",
			verbose: false,
			logFn:   func(l *StderrLogger) { l.Error("boom") },
			want:    "ERROR boom",
		},
		{
			name:    "info suppressed without verbose",
			verbose: false,
			logFn:   func(l *StderrLogger) { l.Info("hello") },
			silent:  true,
		},
		{
			name:    "info emitted with verbose",
			verbose: true,
			logFn:   func(l *StderrLogger) { l.Info("hello") },
			want:    "INFO hello",
		},
		{
			name:    "debug suppressed without verbose",
			verbose: false,
			logFn:   func(l *StderrLogger) { l.Debug("detail") },
			silent:  true,
		},
		{
			name:    "debug emitted with verbose",
			verbose: true,
			logFn:   func(l *StderrLogger) { l.Debug("detail") },
			want:    "DEBUG detail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			l := NewStderrLoggerWithWriter(&buf, tt.verbose)
			tt.logFn(l)

			got := buf.String()

			if tt.silent {
				if got != "" {
					t.Errorf("expected no output, got %q", got)
				}

				return
			}

			if !strings.Contains(got, tt.want) {
				t.Errorf("output %q does not contain %q", got, tt.want)
			}
		})
	}
}

func TestStderrLoggerKeyValues(t *testing.T) {
	var buf bytes.Buffer

	l := NewStderrLoggerWithWriter(&buf, true)
	l.Info("install", "dir", "/usr/local/bin", "version", "v1.2.0")

	got := buf.String()

	if !strings.Contains(got, "dir=/usr/local/bin") {
		t.Errorf("output %q missing dir pair", got)
	}

	if !strings.Contains(got, "version=v1.2.0") {
		t.Errorf("output %q missing version pair", got)
	}
}

func TestStderrLoggerQuotesValues(t *testing.T) {
	var buf bytes.Buffer

	l := NewStderrLoggerWithWriter(&buf, true)
	l.Info("probe", "reason", "no write access")

	if !strings.Contains(buf.String(), `reason="no write access"`) {
		t.Errorf("output %q missing quoted value", buf.String())
	}
}

func TestWithCarriesBasePairs(t *testing.T) {
	var buf bytes.Buffer

	l := NewStderrLoggerWithWriter(&buf, true).With("stage", "fetch")
	l.Info("downloading")

	if !strings.Contains(buf.String(), "stage=fetch") {
		t.Errorf("output %q missing base pair", buf.String())
	}
}

func TestOddKeyValuesIgnored(t *testing.T) {
	var buf bytes.Buffer

	l := NewStderrLoggerWithWriter(&buf, true)
	l.Info("msg", "dangling")

	if strings.Contains(buf.String(), "dangling") {
		t.Errorf("dangling key should be dropped, got %q", buf.String())
	}
}
