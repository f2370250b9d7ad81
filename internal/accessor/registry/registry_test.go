package registry_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tunguska/internal/accessor"
	"tunguska/internal/accessor/registry"
	"tunguska/internal/failure"
)

func TestOpenUnknownAccessor(t *testing.T) {
	_, err := registry.Open("seed", registry.Options{Dir: t.TempDir()})
	if !errors.Is(err, registry.ErrUnknownAccessor) {
		t.Fatalf("expected ErrUnknownAccessor, got %v", err)
	}
	if !errors.Is(err, failure.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}

func TestOpenEdump(t *testing.T) {
	acc, err := registry.Open("EDump", registry.Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if acc == nil || acc.Problems() == nil {
		t.Fatal("expected usable accessor")
	}

	_, err = registry.Open("edump", registry.Options{Dir: filepath.Join(t.TempDir(), "nope")})
	if !errors.Is(err, accessor.ErrVolumeNotFound) {
		t.Fatalf("expected ErrVolumeNotFound, got %v", err)
	}

	_, err = registry.Open("edump", registry.Options{Dir: t.TempDir(), Args: []string{"colour=blue"}})
	if !errors.Is(err, failure.ErrConfiguration) {
		t.Fatalf("expected bad args to be a configuration error, got %v", err)
	}
}

func TestNames(t *testing.T) {
	if diff := cmp.Diff([]string{"edump"}, registry.Names()); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
}
