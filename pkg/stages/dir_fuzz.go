package stages

import (
	"context"
	"encoding/json"

	"reconforge/pkg/models"
	"reconforge/pkg/pipeline"
)

// DirFuzz builds dir_fuzz: ffuf directory brute-force against a capped
// number of live hosts (default 10), each subject to the Circuit Breaker.
func DirFuzz(c *Context) pipeline.Stage {
	return pipeline.Stage{
		Name:      "dir_fuzz",
		DependsOn: []string{"probe_http"},
		Run: func(ctx context.Context, run *models.Run) error {
			live, err := readLinesIfExists(c, "subdomains", "live.txt")
			if err != nil {
				return err
			}

			limit := c.Config.DirFuzzHosts
			if limit <= 0 {
				limit = 10
			}
			if len(live) > limit {
				live = live[:limit]
			}

			var outputs []string
			for _, host := range live {
				args := []string{"-u", host + "/FUZZ", "-w", c.Config.Wordlist, "-mc", "200,301,302,403", "-of", "json", "-s"}
				res, err := c.invoke(ctx, "ffuf", host, args, c.Config.StageTimeout("dir_fuzz", 0))
				if err != nil {
					c.Log.WithError(err).WithField("host", host).Warn("dir_fuzz skipped host")
					continue
				}
				if !res.Succeeded() && !res.Timeout {
					continue
				}

				var parsed map[string]any
				if json.Unmarshal(res.Stdout, &parsed) != nil {
					parsed = map[string]any{"raw": string(res.Stdout)}
				}
				out, err := json.MarshalIndent(parsed, "", "  ")
				if err != nil {
					continue
				}
				art, err := c.Artifacts.Write("endpoints/dirs", filenameSafe(host)+".json", out, models.ContentJSON)
				if err != nil {
					return err
				}
				outputs = append(outputs, art.ID)
			}

			rec := run.Stage("dir_fuzz")
			for _, id := range outputs {
				rec.AddOutput(id)
			}
			return nil
		},
	}
}
