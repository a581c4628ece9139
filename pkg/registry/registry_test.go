package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocateUsesOverrideFirst(t *testing.T) {
	dir := t.TempDir()
	fakeTool := filepath.Join(dir, "subfinder")
	if err := os.WriteFile(fakeTool, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := New(map[string]string{"subfinder": fakeTool}, "")
	got, err := r.Locate("subfinder")
	if err != nil {
		t.Fatal(err)
	}
	if got != fakeTool {
		t.Fatalf("Locate = %q, want %q", got, fakeTool)
	}
}

func TestLocateFallsBackToLocalBin(t *testing.T) {
	dir := t.TempDir()
	fakeTool := filepath.Join(dir, "httpx")
	if err := os.WriteFile(fakeTool, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := New(nil, dir)
	got, err := r.Locate("httpx")
	if err != nil {
		t.Fatal(err)
	}
	if got != fakeTool {
		t.Fatalf("Locate = %q, want %q", got, fakeTool)
	}
}

func TestLocateCachesResult(t *testing.T) {
	dir := t.TempDir()
	fakeTool := filepath.Join(dir, "nuclei")
	if err := os.WriteFile(fakeTool, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	r := New(nil, dir)
	first, err := r.Locate("nuclei")
	if err != nil {
		t.Fatal(err)
	}
	os.Remove(fakeTool)
	second, err := r.Locate("nuclei")
	if err != nil {
		t.Fatalf("expected cached result despite removal, got error: %v", err)
	}
	if first != second {
		t.Fatalf("cache mismatch: %q != %q", first, second)
	}
}

func TestMustHaveFailsFastOnMissingTool(t *testing.T) {
	r := New(nil, t.TempDir())
	if err := r.MustHave([]string{"definitely-not-a-real-tool-xyz"}); err == nil {
		t.Fatal("expected error for nonexistent tool")
	}
}
