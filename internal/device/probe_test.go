package device

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestProbe(t *testing.T) {
	t.Run("capture node present", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "pcmC0D0c"), nil, 0o660); err != nil {
			t.Fatalf("write node: %v", err)
		}
		if err := Probe(dir); err != nil {
			t.Fatalf("Probe: %v", err)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		assertCause(t, Probe(filepath.Join(t.TempDir(), "snd")), CauseNotFound)
	})

	t.Run("playback only", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "pcmC0D0p"), nil, 0o660); err != nil {
			t.Fatalf("write node: %v", err)
		}
		assertCause(t, Probe(dir), CauseNotFound)
	})

	t.Run("unreadable node", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root bypasses permission checks")
		}
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "pcmC0D0c"), nil, 0o000); err != nil {
			t.Fatalf("write node: %v", err)
		}
		assertCause(t, Probe(dir), CausePermission)
	})
}

func assertCause(t *testing.T, err error, want Cause) {
	t.Helper()
	var devErr *Error
	if !errors.As(err, &devErr) {
		t.Fatalf("expected device error, got %v", err)
	}
	if devErr.Cause != want {
		t.Fatalf("cause = %q, want %q (%v)", devErr.Cause, want, err)
	}
}
