package state

import (
	"testing"

	"reconforge/pkg/artifacts"
	"reconforge/pkg/models"
	"reconforge/pkg/pathguard"
)

func newTestStore(t *testing.T, root string) *artifacts.Store {
	t.Helper()
	guard, err := pathguard.New(root)
	if err != nil {
		t.Fatal(err)
	}
	return artifacts.New(guard)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	j := Open(dir)
	if j.Exists() {
		t.Fatal("expected no journal before first save")
	}

	run := models.NewRun("example.com_20260803T000000Z", models.Target{FQDN: "example.com"}, dir, "hash1")
	run.RegisterStage(models.NewStageRecord("passive_enum", nil, []string{"subfinder"}))
	run.Stage("passive_enum").Transition(models.StageOK, "")

	if err := j.Save(BuildRecord(run, nil)); err != nil {
		t.Fatal(err)
	}
	if !j.Exists() {
		t.Fatal("expected journal to exist after save")
	}

	rec, err := j.Load()
	if err != nil {
		t.Fatal(err)
	}
	if rec.RunID != run.ID {
		t.Fatalf("RunID = %q, want %q", rec.RunID, run.ID)
	}
	if rec.Stages["passive_enum"].State != models.StageOK {
		t.Fatalf("stage state = %v, want OK", rec.Stages["passive_enum"].State)
	}
}

func TestReconcileResetsRunningToPending(t *testing.T) {
	root := t.TempDir()
	run := models.NewRun("r1", models.Target{FQDN: "example.com"}, root, "hash1")
	run.RegisterStage(models.NewStageRecord("dns_resolve", nil, nil))

	rec := models.JournalRecord{
		ConfigHash: "hash1",
		Stages: map[string]models.StageRecord{
			"dns_resolve": {Name: "dns_resolve", State: models.StageRunning},
		},
	}

	stale := Reconcile(run, rec, newTestStore(t, root))
	if stale {
		t.Fatal("expected not stale: hash matches")
	}
	if run.Stage("dns_resolve").Snapshot().State != models.StagePending {
		t.Fatalf("expected RUNNING reset to PENDING, got %v", run.Stage("dns_resolve").Snapshot().State)
	}
}

func TestReconcileDetectsConfigHashMismatch(t *testing.T) {
	root := t.TempDir()
	run := models.NewRun("r1", models.Target{FQDN: "example.com"}, root, "hash1")
	rec := models.JournalRecord{ConfigHash: "hash2"}

	if stale := Reconcile(run, rec, newTestStore(t, root)); !stale {
		t.Fatal("expected stale=true on config hash mismatch")
	}
}

func TestReconcilePreservesCompletedStageOutputs(t *testing.T) {
	root := t.TempDir()
	run := models.NewRun("r1", models.Target{FQDN: "example.com"}, root, "hash1")
	run.RegisterStage(models.NewStageRecord("probe_http", nil, nil))

	store := newTestStore(t, root)
	if _, err := store.Write("probe_http", "live_hosts.json", []byte("[]"), models.ContentJSON); err != nil {
		t.Fatal(err)
	}

	rec := models.JournalRecord{
		ConfigHash: "hash1",
		Stages: map[string]models.StageRecord{
			"probe_http": {Name: "probe_http", State: models.StageOK, Outputs: []string{"probe_http.live_hosts.json"}},
		},
	}
	Reconcile(run, rec, store)

	snap := run.Stage("probe_http").Snapshot()
	if snap.State != models.StageOK {
		t.Fatalf("expected OK preserved, got %v", snap.State)
	}
	if len(snap.Outputs) != 1 || snap.Outputs[0] != "probe_http.live_hosts.json" {
		t.Fatalf("expected outputs preserved, got %v", snap.Outputs)
	}
}

func TestReconcileResetsToPendingWhenOutputMissing(t *testing.T) {
	root := t.TempDir()
	run := models.NewRun("r1", models.Target{FQDN: "example.com"}, root, "hash1")
	run.RegisterStage(models.NewStageRecord("probe_http", nil, nil))

	// No artifact actually written to disk for this stage's recorded output.
	rec := models.JournalRecord{
		ConfigHash: "hash1",
		Stages: map[string]models.StageRecord{
			"probe_http": {Name: "probe_http", State: models.StageOK, Outputs: []string{"probe_http.live_hosts.json"}},
		},
	}
	Reconcile(run, rec, newTestStore(t, root))

	if state := run.Stage("probe_http").Snapshot().State; state != models.StagePending {
		t.Fatalf("expected PENDING when recorded output is missing, got %v", state)
	}
}
