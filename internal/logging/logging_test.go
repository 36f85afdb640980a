package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

const sampleToken = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw1"

func TestRedactorBotTokenPattern(t *testing.T) {
	r := NewRedactor()

	in := "POST https://api.telegram.org/bot" + sampleToken + "/sendMessage failed"
	out := r.Redact(in)
	if strings.Contains(out, sampleToken) {
		t.Errorf("token survived redaction: %q", out)
	}
	if !strings.Contains(out, RedactPlaceholder) {
		t.Errorf("placeholder missing: %q", out)
	}
}

func TestRedactorLiteral(t *testing.T) {
	r := NewRedactor()
	r.AddLiteral("super-secret-webhook-value")

	out := r.Redact("secret mismatch: got super-secret-webhook-value")
	if strings.Contains(out, "super-secret-webhook-value") {
		t.Errorf("literal survived redaction: %q", out)
	}
}

func TestRedactorIgnoresShortLiterals(t *testing.T) {
	r := NewRedactor()
	r.AddLiteral("ok")

	if out := r.Redact("status ok"); out != "status ok" {
		t.Errorf("short literal mangled output: %q", out)
	}
}

func TestHandlerRedactsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger, redactor, err := New(Config{Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	redactor.AddLiteral("hook-secret-value-1234")

	logger.Info("webhook rejected",
		"token", sampleToken,
		"secret", "hook-secret-value-1234",
	)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, buf.String())
	}
	if line["token"] != RedactPlaceholder {
		t.Errorf("token attr = %q, want placeholder", line["token"])
	}
	if line["secret"] != RedactPlaceholder {
		t.Errorf("secret attr = %q, want placeholder", line["secret"])
	}
}

func TestHandlerRedactsErrorValues(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Config{Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	logger.Error("call failed", "error", fmt.Errorf("bot%s: connection refused", sampleToken))
	if strings.Contains(buf.String(), sampleToken) {
		t.Errorf("token leaked through error attr: %s", buf.String())
	}
}

func TestHandlerRedactsWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Config{}, &buf)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	logger.With("token", sampleToken).Info("tenant loaded")
	if strings.Contains(buf.String(), sampleToken) {
		t.Errorf("token leaked through With(): %s", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Config{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("emitted")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Error("info record emitted at warn level")
	}
	if !strings.Contains(out, "emitted") {
		t.Error("warn record missing")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"json debug", Config{Level: "debug", Format: "json"}, false},
		{"bad level", Config{Level: "loud"}, true},
		{"bad format", Config{Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Defaults()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := parseLevel("WARN"); err != nil || lvl != slog.LevelWarn {
		t.Errorf("parseLevel(WARN) = %v, %v", lvl, err)
	}
}
