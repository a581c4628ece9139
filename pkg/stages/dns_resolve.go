package stages

import (
	"context"
	"encoding/json"

	"reconforge/pkg/models"
	"reconforge/pkg/pipeline"
)

// ResolvedHost is one line of dnsx's JSON-lines output, the shape of
// subdomains/resolved.json.
type ResolvedHost struct {
	Host string   `json:"host"`
	A    []string `json:"a,omitempty"`
}

// DNSResolve builds dns_resolve: feeds subdomains/all.txt to dnsx and
// records every host that resolved, ready for probe_http to consume.
func DNSResolve(c *Context) pipeline.Stage {
	return pipeline.Stage{
		Name:      "dns_resolve",
		DependsOn: []string{"merge_subdomains"},
		Run: func(ctx context.Context, run *models.Run) error {
			hosts, err := readLinesIfExists(c, "subdomains", "all.txt")
			if err != nil {
				return err
			}
			if len(hosts) == 0 {
				art, err := c.Artifacts.Write("subdomains", "resolved.json", []byte("[]"), models.ContentJSON)
				if err != nil {
					return err
				}
				run.Stage("dns_resolve").AddOutput(art.ID)
				return nil
			}

			target := run.Target.FQDN
			res, err := c.invoke(ctx, "dnsx", target, []string{"-silent", "-a", "-resp", "-json"}, c.Config.StageTimeout("dns_resolve", 0))
			if err != nil {
				run.Stage("dns_resolve").Transition(models.StageSkipped, err.Error())
				return nil
			}
			if !res.Succeeded() && !res.Timeout {
				c.Log.WithField("exit_code", res.ExitCode).Warn("dnsx exited non-zero")
			}

			var resolved []ResolvedHost
			for _, line := range splitLines(res.Stdout) {
				var rh ResolvedHost
				if json.Unmarshal([]byte(line), &rh) == nil && rh.Host != "" {
					resolved = append(resolved, rh)
				}
			}

			out, err := json.MarshalIndent(resolved, "", "  ")
			if err != nil {
				return err
			}
			art, err := c.Artifacts.Write("subdomains", "resolved.json", out, models.ContentJSON)
			if err != nil {
				return err
			}
			run.Stage("dns_resolve").AddOutput(art.ID)
			return nil
		},
	}
}
