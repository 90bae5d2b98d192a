package observer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/startstop/pkg/lifecycle"
)

func TestStatusFile_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	f := NewStatusFile(dir, nil)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	f.OnStateChange(lifecycle.StateChangeEvent{
		Service:  "http",
		Previous: lifecycle.Status{State: lifecycle.StateStopping},
		Current:  lifecycle.Status{State: lifecycle.StateError, Err: errors.New("close: timeout")},
		Reason:   "stop failed",
		At:       at,
	})

	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Record{
		Service:  "http",
		State:    lifecycle.StateError,
		Previous: lifecycle.StateStopping,
		Error:    "close: timeout",
		Reason:   "stop failed",
	}
	if !got.At.Equal(at) {
		t.Errorf("At = %v, want %v", got.At, at)
	}
	got.At = time.Time{}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	if _, err := os.Stat(f.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestStatusFile_LoadMissing(t *testing.T) {
	f := NewStatusFile(t.TempDir(), nil)

	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != (Record{}) {
		t.Errorf("Load() = %+v, want empty record", got)
	}
}

func TestStatusFile_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, StatusFileName), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStatusFile(dir, nil).Load(); err == nil {
		t.Error("Load() of a corrupt file should fail")
	}
}

func TestStatusFile_TracksService(t *testing.T) {
	f := NewStatusFile(t.TempDir(), nil)
	svc := lifecycle.New(nil, nil, lifecycle.WithName("worker"), lifecycle.WithObserver(f))

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}

	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Service != "worker" || got.State != lifecycle.StateStarted || got.Previous != lifecycle.StateStarting {
		t.Errorf("Load() = %+v, want worker Starting -> Started", got)
	}
}
