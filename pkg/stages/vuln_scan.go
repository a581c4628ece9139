package stages

import (
	"context"
	"encoding/json"

	"reconforge/pkg/models"
	"reconforge/pkg/pipeline"
)

// NucleiFinding is one nuclei JSONL result line, trimmed to the fields the
// report needs.
type NucleiFinding struct {
	TemplateID string          `json:"template-id"`
	Host       string          `json:"host"`
	Severity   models.Severity `json:"severity"`
	Info       struct {
		Name string `json:"name"`
	} `json:"info"`
}

// severityAllowed reports whether sev passes minSeverity's floor, using the
// fixed critical>high>medium>low>info ordering.
func severityAllowed(sev, floor models.Severity) bool {
	rank := map[models.Severity]int{
		models.SeverityInfo:     0,
		models.SeverityLow:      1,
		models.SeverityMedium:   2,
		models.SeverityHigh:     3,
		models.SeverityCritical: 4,
	}
	floorRank, ok := rank[floor]
	if !ok {
		return true
	}
	return rank[sev] >= floorRank
}

// VulnScan builds vuln_scan: nuclei against live hosts, filtered by the
// configured minimum severity.
func VulnScan(c *Context, minSeverity models.Severity) pipeline.Stage {
	return pipeline.Stage{
		Name:      "vuln_scan",
		DependsOn: []string{"probe_http"},
		Run: func(ctx context.Context, run *models.Run) error {
			live, err := readLinesIfExists(c, "subdomains", "live.txt")
			if err != nil {
				return err
			}
			if len(live) == 0 {
				art, err := c.Artifacts.Write("vulns", "nuclei.json", []byte("[]"), models.ContentJSON)
				if err != nil {
					return err
				}
				run.Stage("vuln_scan").AddOutput(art.ID)
				return nil
			}

			target := run.Target.FQDN
			res, err := c.invoke(ctx, "nuclei", target, []string{"-silent", "-jsonl", "-l", "/dev/stdin"}, c.Config.StageTimeout("vuln_scan", 0))
			if err != nil {
				run.Stage("vuln_scan").Transition(models.StageSkipped, err.Error())
				return nil
			}

			var findings []NucleiFinding
			for _, line := range splitLines(res.Stdout) {
				var f NucleiFinding
				if json.Unmarshal([]byte(line), &f) != nil {
					continue
				}
				if severityAllowed(f.Severity, minSeverity) {
					findings = append(findings, f)
				}
			}

			out, err := json.MarshalIndent(findings, "", "  ")
			if err != nil {
				return err
			}
			art, err := c.Artifacts.Write("vulns", "nuclei.json", out, models.ContentJSON)
			if err != nil {
				return err
			}
			run.Stage("vuln_scan").AddOutput(art.ID)
			return nil
		},
	}
}
