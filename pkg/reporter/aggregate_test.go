package reporter

import (
	"testing"

	"reconforge/pkg/artifacts"
	"reconforge/pkg/models"
	"reconforge/pkg/pathguard"
)

func newTestStore(t *testing.T) (*artifacts.Store, string) {
	t.Helper()
	root := t.TempDir()
	guard, err := pathguard.New(root)
	if err != nil {
		t.Fatal(err)
	}
	return artifacts.New(guard), root
}

func TestAggregateCountsExistingArtifacts(t *testing.T) {
	store, root := newTestStore(t)
	if _, err := store.Write("subdomains", "all.txt", []byte("a.example.com\nb.example.com\n"), models.ContentTextLines); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Write("subdomains", "live.txt", []byte("a.example.com\n"), models.ContentTextLines); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Write("vulns", "nuclei.json", []byte(`[{"severity":"high"}]`), models.ContentJSON); err != nil {
		t.Fatal(err)
	}

	run := models.NewRun("example.com_20260101T000000Z", models.Target{FQDN: "example.com"}, root, "hash")
	run.RegisterStage(models.NewStageRecord("passive_enum", nil, nil))

	s, err := Aggregate(run, store)
	if err != nil {
		t.Fatal(err)
	}
	if s.Statistics.SubdomainsFound != 2 {
		t.Fatalf("SubdomainsFound = %d, want 2", s.Statistics.SubdomainsFound)
	}
	if s.Statistics.LiveHosts != 1 {
		t.Fatalf("LiveHosts = %d, want 1", s.Statistics.LiveHosts)
	}
	if s.Findings.High != 1 {
		t.Fatalf("Findings.High = %d, want 1", s.Findings.High)
	}
	if s.Statistics.Vulnerabilities != 1 {
		t.Fatalf("Vulnerabilities = %d, want 1", s.Statistics.Vulnerabilities)
	}
}

func TestAggregateToleratesMissingArtifacts(t *testing.T) {
	store, root := newTestStore(t)
	run := models.NewRun("example.com_20260101T000000Z", models.Target{FQDN: "example.com"}, root, "hash")

	s, err := Aggregate(run, store)
	if err != nil {
		t.Fatal(err)
	}
	if s.Statistics.SubdomainsFound != 0 || s.Statistics.Vulnerabilities != 0 {
		t.Fatalf("expected zero statistics on missing artifacts, got %+v", s.Statistics)
	}
}
