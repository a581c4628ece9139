package stages

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"

	"reconforge/pkg/artifacts"
	"reconforge/pkg/governor"
	"reconforge/pkg/models"
	"reconforge/pkg/pathguard"
	"reconforge/pkg/registry"
	"reconforge/pkg/runner"
)

func newTestContext(t *testing.T) (*Context, string) {
	t.Helper()
	root := t.TempDir()
	guard, err := pathguard.New(root)
	if err != nil {
		t.Fatal(err)
	}
	return &Context{
		Config:    models.Defaults(),
		Registry:  registry.New(nil, ""),
		Runner:    runner.New(),
		Governor:  governor.New(10, 10, 0, 0),
		Artifacts: artifacts.New(guard),
		Guard:     guard,
		Log:       logrus.NewEntry(logrus.New()),
	}, root
}

func TestAggregateAndReportProduceFiles(t *testing.T) {
	c, root := newTestContext(t)

	run := models.NewRun("example.com_20260101T000000Z", models.Target{FQDN: "example.com"}, root, "hash")
	run.RegisterStage(models.NewStageRecord("passive_enum", nil, nil))
	run.Stage("passive_enum").Transition(models.StageOK, "")

	aggStage := Aggregate(c)
	if err := aggStage.Run(context.Background(), run); err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if !c.Artifacts.Exists(".", "summary.json") {
		t.Fatal("expected summary.json to exist")
	}

	reportStage := Report(c)
	if err := reportStage.Run(context.Background(), run); err != nil {
		t.Fatalf("report: %v", err)
	}
	if !c.Artifacts.Exists("reports", "summary.md") {
		t.Fatal("expected reports/summary.md to exist")
	}
	if !c.Artifacts.Exists("reports", "full_report.html") {
		t.Fatal("expected reports/full_report.html to exist")
	}
}
