package artifacts

import (
	"os"
	"testing"

	"reconforge/pkg/models"
	"reconforge/pkg/pathguard"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	g, err := pathguard.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(g)
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	s := newStore(t)
	art, err := s.Write("passive_enum", "subfinder.txt", []byte("a.example.com\nb.example.com\n"), models.ContentTextLines)
	if err != nil {
		t.Fatal(err)
	}
	if art.ID != "passive_enum.subfinder.txt" {
		t.Fatalf("ID = %q", art.ID)
	}

	got, err := s.Read(art)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "a.example.com\nb.example.com\n" {
		t.Fatalf("Read = %q", got)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	s := newStore(t)
	art, err := s.Write("dns_resolve", "resolved.json", []byte(`{"a":1}`), models.ContentJSON)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := s.Verify(art)
	if err != nil || !ok {
		t.Fatalf("expected verify ok, got ok=%v err=%v", ok, err)
	}

	abs, _ := s.guard.Resolve(art.Path)
	if err := os.WriteFile(abs, []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}
	ok, err = s.Verify(art)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected verify to detect tampering")
	}
}

func TestExistsReflectsWrites(t *testing.T) {
	s := newStore(t)
	if s.Exists("port_scan", "nmap.xml") {
		t.Fatal("expected false before write")
	}
	if _, err := s.Write("port_scan", "nmap.xml", []byte("<xml/>"), models.ContentTextLines); err != nil {
		t.Fatal(err)
	}
	if !s.Exists("port_scan", "nmap.xml") {
		t.Fatal("expected true after write")
	}
}
