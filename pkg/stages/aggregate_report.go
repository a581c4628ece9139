package stages

import (
	"context"
	"encoding/json"

	"reconforge/pkg/models"
	"reconforge/pkg/pipeline"
	"reconforge/pkg/reporter"
)

// waitAllOtherStages blocks until every registered stage other than except
// reaches a terminal state, regardless of whether it ended OK, FAILED, or
// SKIPPED — aggregate reads whatever artifacts exist, per spec.md §4.7's
// "adds no new data" rule, so it must never be starved by one failed stage.
func waitAllOtherStages(ctx context.Context, run *models.Run, except string) bool {
	for _, rec := range run.Stages() {
		if rec.Name == except {
			continue
		}
		select {
		case <-rec.Done():
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// Aggregate builds the aggregate stage: reads every artifact the prior
// stages produced and writes summary.json, never invoking a tool itself.
func Aggregate(c *Context) pipeline.Stage {
	return pipeline.Stage{
		Name: "aggregate",
		Run: func(ctx context.Context, run *models.Run) error {
			if !waitAllOtherStages(ctx, run, "aggregate") {
				run.Stage("aggregate").Transition(models.StageSkipped, "run cancelled before upstream stages completed")
				return nil
			}

			summary, err := reporter.Aggregate(run, c.Artifacts)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			art, err := c.Artifacts.WriteRoot("summary.json", out, models.ContentJSON)
			if err != nil {
				return err
			}
			run.Stage("aggregate").AddOutput(art.ID)
			return nil
		},
	}
}

// Report builds the report stage: re-reads summary.json and renders
// reports/summary.md and reports/full_report.html from it.
func Report(c *Context) pipeline.Stage {
	return pipeline.Stage{
		Name:      "report",
		DependsOn: []string{"aggregate"},
		Run: func(ctx context.Context, run *models.Run) error {
			raw, err := c.Artifacts.Read(models.Artifact{Path: "summary.json"})
			if err != nil {
				return err
			}
			var summary reporter.Summary
			if err := json.Unmarshal(raw, &summary); err != nil {
				return err
			}

			md, err := reporter.RenderMarkdown(summary)
			if err != nil {
				return err
			}
			if _, err := c.Artifacts.Write("reports", "summary.md", md, models.ContentTextLines); err != nil {
				return err
			}

			html, err := reporter.RenderHTML(summary)
			if err != nil {
				return err
			}
			if _, err := c.Artifacts.Write("reports", "full_report.html", html, models.ContentBinary); err != nil {
				return err
			}
			return nil
		},
	}
}
