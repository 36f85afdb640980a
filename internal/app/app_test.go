package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/flemzord/botgate/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Defaults()
	cfg.Gateway.Bind = "127.0.0.1:0"
	cfg.Directory.Path = filepath.Join(t.TempDir(), "tenants.db")
	return cfg
}

func TestAppStartsAndStopsCleanly(t *testing.T) {
	var logs bytes.Buffer
	a, err := New(testConfig(t), &logs)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

func TestAppQueuedMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dispatch.Mode = "queued"
	cfg.Dispatch.Workers = 2

	var logs bytes.Buffer
	a, err := New(cfg, &logs)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

func TestAppRejectsBadBind(t *testing.T) {
	cfg := testConfig(t)
	cfg.Gateway.Bind = "not-an-address"

	if _, err := New(cfg, nil); err == nil {
		t.Error("New() accepted an invalid bind address")
	}
}
