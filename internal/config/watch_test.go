package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "camera:\n  fov_deg: 65\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	errs := make(chan error, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { changes <- c }, func(err error) { errs <- err })
	}()

	// Give the watcher time to register before writing.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		if err := os.WriteFile(path, []byte("camera:\n  fov_deg: 90\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		select {
		case cfg := <-changes:
			if cfg.Camera.FOVDeg != 90 {
				t.Errorf("reloaded fov_deg = %v, want 90", cfg.Camera.FOVDeg)
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch returned error: %v", err)
			}
			return
		case err := <-errs:
			t.Fatalf("unexpected watch error: %v", err)
		case <-tick.C:
		case <-deadline:
			t.Fatal("timeout waiting for reload")
		}
	}
}

func TestWatch_InvalidContentReported(t *testing.T) {
	path := writeConfig(t, "camera:\n  fov_deg: 65\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 4)
	go Watch(ctx, path, func(*Config) {}, func(err error) { errs <- err })

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		if err := os.WriteFile(path, []byte("camera:\n  fov_deg: 400\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		select {
		case err := <-errs:
			if err == nil {
				t.Error("expected non-nil error")
			}
			return
		case <-tick.C:
		case <-deadline:
			t.Fatal("timeout waiting for reload error")
		}
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), "/nonexistent-dir-for-watch/configs/x.yaml",
		func(*Config) {}, func(error) {})
	if err == nil {
		t.Error("expected error for missing directory, got nil")
	}
}
