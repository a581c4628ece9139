package pathguard

import (
	"os"
	"path/filepath"
	"testing"

	"reconforge/pkg/models"
)

func TestResolveAllowsContainedPaths(t *testing.T) {
	g, err := New("/tmp/recon_run_123")
	if err != nil {
		t.Fatal(err)
	}
	got, err := g.Resolve("passive_enum/subfinder.txt")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join("/tmp/recon_run_123", "passive_enum/subfinder.txt")
	if got != want {
		t.Fatalf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	g, err := New("/tmp/recon_run_123")
	if err != nil {
		t.Fatal(err)
	}
	_, err = g.Resolve("../../etc/passwd")
	if err == nil {
		t.Fatal("expected PathEscapeError, got nil")
	}
	if _, ok := err.(*models.PathEscapeError); !ok {
		t.Fatalf("expected *models.PathEscapeError, got %T", err)
	}
}

func TestResolveRejectsAbsoluteEscape(t *testing.T) {
	g, err := New("/tmp/recon_run_123")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.ResolveAbs("/etc/passwd"); err == nil {
		t.Fatal("expected error resolving /etc/passwd outside root")
	}
}

func TestResolveRejectsNulByte(t *testing.T) {
	g, err := New("/tmp/recon_run_123")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Resolve("subdomains/evil\x00.txt"); err == nil {
		t.Fatal("expected error on NUL byte in path")
	}
}

func TestResolveRejectsEmbeddedNewline(t *testing.T) {
	g, err := New("/tmp/recon_run_123")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Resolve("subdomains/evil\nname.txt"); err == nil {
		t.Fatal("expected error on embedded newline in path")
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	g, err := New(root)
	if err != nil {
		t.Fatal(err)
	}

	linkPath := filepath.Join(root, "escape_link")
	if err := os.Symlink(outside, linkPath); err != nil {
		t.Fatal(err)
	}

	if _, err := g.Resolve("escape_link/payload.txt"); err == nil {
		t.Fatal("expected PathEscapeError when a symlink inside root points outside it")
	}
}
