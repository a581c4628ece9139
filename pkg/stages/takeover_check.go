package stages

import (
	"context"
	"encoding/json"

	"reconforge/pkg/models"
	"reconforge/pkg/pipeline"
)

// TakeoverFinding is one flagged subdomain takeover candidate.
type TakeoverFinding struct {
	Host     string          `json:"host"`
	Service  string          `json:"service,omitempty"`
	Severity models.Severity `json:"severity"`
}

// TakeoverCheck builds takeover_check: runs nuclei with its takeover
// template bundle (falling back to subzy) against live hosts. Any finding
// of severity >= high is surfaced in the report.
func TakeoverCheck(c *Context) pipeline.Stage {
	return pipeline.Stage{
		Name:      "takeover_check",
		DependsOn: []string{"probe_http"},
		Run: func(ctx context.Context, run *models.Run) error {
			live, err := readLinesIfExists(c, "subdomains", "live.txt")
			if err != nil {
				return err
			}
			if len(live) == 0 {
				art, err := c.Artifacts.Write("vulns", "takeovers.json", []byte("[]"), models.ContentJSON)
				if err != nil {
					return err
				}
				run.Stage("takeover_check").AddOutput(art.ID)
				return nil
			}

			target := run.Target.FQDN
			tool, args := "nuclei", []string{"-silent", "-jsonl", "-tags", "takeover"}
			if _, err := c.Registry.Locate(tool); err != nil {
				tool, args = "subzy", []string{"run", "--hide_fails", "--json"}
			}

			res, err := c.invoke(ctx, tool, target, args, c.Config.StageTimeout("takeover_check", 0))
			var findings []TakeoverFinding
			if err == nil && res.Succeeded() {
				for _, line := range splitLines(res.Stdout) {
					var raw map[string]any
					if json.Unmarshal([]byte(line), &raw) != nil {
						continue
					}
					findings = append(findings, TakeoverFinding{
						Host:     fieldString(raw, "host"),
						Severity: models.SeverityHigh,
					})
				}
			} else if err != nil {
				run.Stage("takeover_check").Transition(models.StageSkipped, err.Error())
				return nil
			}

			out, err := json.MarshalIndent(findings, "", "  ")
			if err != nil {
				return err
			}
			art, err := c.Artifacts.Write("vulns", "takeovers.json", out, models.ContentJSON)
			if err != nil {
				return err
			}
			run.Stage("takeover_check").AddOutput(art.ID)
			return nil
		},
	}
}

func fieldString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
