package stages

import (
	"context"
	"encoding/json"

	"reconforge/pkg/models"
	"reconforge/pkg/pipeline"
)

// HTTPProbeResult is one line of httpx's JSON output, capturing the fields
// the catalog asks for: status, title, tech fingerprint.
type HTTPProbeResult struct {
	URL    string   `json:"url"`
	Host   string   `json:"host"`
	Status int      `json:"status_code"`
	Title  string   `json:"title,omitempty"`
	Tech   []string `json:"tech,omitempty"`
}

// httpStatusIsFailure reports whether status should count against the
// target's Circuit Breaker per spec.md §4.5 (5xx, 403, and 429 all count as
// failures even though the HTTP request itself succeeded).
func httpStatusIsFailure(status int) bool {
	return status == 403 || status == 429 || status >= 500
}

// ProbeHTTP builds probe_http: runs httpx against resolved hosts. Each
// host's invocation goes through the Governor individually so the per-host
// Circuit Breaker in §4.5 can suppress a misbehaving target without
// stalling the rest of the batch.
func ProbeHTTP(c *Context) pipeline.Stage {
	return pipeline.Stage{
		Name:      "probe_http",
		DependsOn: []string{"dns_resolve"},
		Run: func(ctx context.Context, run *models.Run) error {
			var resolved []ResolvedHost
			if c.Artifacts.Exists("subdomains", "resolved.json") {
				b, err := c.Artifacts.Read(models.Artifact{Path: "subdomains/resolved.json"})
				if err != nil {
					return err
				}
				json.Unmarshal(b, &resolved)
			}

			var live []string
			var probed []HTTPProbeResult
			for _, rh := range resolved {
				res, err := c.invoke(ctx, "httpx", rh.Host, []string{"-silent", "-json", "-u", rh.Host, "-title", "-tech-detect", "-status-code"}, c.Config.StageTimeout("probe_http", 0))
				if err != nil {
					c.Log.WithError(err).WithField("host", rh.Host).Warn("probe_http skipped host")
					continue
				}
				for _, line := range splitLines(res.Stdout) {
					var hp HTTPProbeResult
					if json.Unmarshal([]byte(line), &hp) == nil && hp.URL != "" {
						probed = append(probed, hp)
						live = append(live, hp.URL)
						if httpStatusIsFailure(hp.Status) {
							c.Governor.RecordFailure(rh.Host)
						} else {
							c.Governor.RecordSuccess(rh.Host)
						}
					}
				}
			}

			liveArt, err := c.Artifacts.Write("subdomains", "live.txt", linesToBytes(dedupeSorted(live)), models.ContentTextLines)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(probed, "", "  ")
			if err != nil {
				return err
			}
			httpxArt, err := c.Artifacts.Write("http", "httpx.json", out, models.ContentJSON)
			if err != nil {
				return err
			}
			rec := run.Stage("probe_http")
			rec.AddOutput(liveArt.ID)
			rec.AddOutput(httpxArt.ID)
			return nil
		},
	}
}
