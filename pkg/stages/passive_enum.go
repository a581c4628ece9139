package stages

import (
	"context"
	"sync"

	"reconforge/pkg/models"
	"reconforge/pkg/pipeline"
)

// passiveTools is fixed rather than config-driven: each is optional, and a
// missing binary only drops that tool's contribution to the union.
var passiveTools = []struct {
	name string
	args func(target string) []string
}{
	{"subfinder", func(t string) []string { return []string{"-silent", "-d", t} }},
	{"assetfinder", func(t string) []string { return []string{"--subs-only", t} }},
	{"amass", func(t string) []string { return []string{"enum", "-passive", "-d", t, "-silent"} }},
}

// PassiveEnum builds the passive_enum stage: subfinder, assetfinder, and
// amass run concurrently against the target; a tool's absence or failure
// only shrinks the union, it never fails the stage, per the catalog note
// "A tool's failure does not fail the stage."
func PassiveEnum(c *Context) pipeline.Stage {
	return pipeline.Stage{
		Name: "passive_enum",
		Run: func(ctx context.Context, run *models.Run) error {
			target := run.Target.FQDN
			results := make([][]string, len(passiveTools))

			var wg sync.WaitGroup
			for i, tool := range passiveTools {
				wg.Add(1)
				go func(i int, name string, args []string) {
					defer wg.Done()
					res, err := c.invoke(ctx, name, target, args, c.Config.StageTimeout("passive_enum", 0))
					if err != nil {
						c.Log.WithError(err).WithField("tool", name).Warn("passive enumeration tool unavailable")
						return
					}
					if !res.Succeeded() {
						c.Log.WithField("tool", name).WithField("exit_code", res.ExitCode).Warn("passive enumeration tool exited non-zero")
					}
					results[i] = splitLines(res.Stdout)
				}(i, tool.name, tool.args(target))
			}
			wg.Wait()

			merged := unionSorted(results...)
			art, err := c.Artifacts.Write("subdomains", "passive.txt", linesToBytes(merged), models.ContentTextLines)
			if err != nil {
				return err
			}
			run.Stage("passive_enum").AddOutput(art.ID)
			return nil
		},
	}
}
