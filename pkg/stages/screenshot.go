package stages

import (
	"context"

	"reconforge/pkg/models"
	"reconforge/pkg/pipeline"
)

// Screenshot builds the screenshot stage: gowitness against every live
// host, one invocation per host so a slow or hanging host cannot starve the
// batch. A per-host failure is logged and skipped, never fails the stage.
func Screenshot(c *Context) pipeline.Stage {
	return pipeline.Stage{
		Name:      "screenshot",
		DependsOn: []string{"probe_http"},
		Run: func(ctx context.Context, run *models.Run) error {
			live, err := readLinesIfExists(c, "subdomains", "live.txt")
			if err != nil {
				return err
			}

			shotDir, err := c.resolveDir("screenshots")
			if err != nil {
				return err
			}

			taken := 0
			for _, host := range live {
				res, err := c.invoke(ctx, "gowitness", host, []string{"single", "--url", host, "--screenshot-path", shotDir}, c.Config.StageTimeout("screenshot", 0))
				if err != nil {
					c.Log.WithError(err).WithField("host", host).Warn("screenshot skipped host")
					continue
				}
				if res.Succeeded() {
					taken++
				}
			}

			c.Log.WithField("screenshots_taken", taken).Info("screenshot stage complete")
			return nil
		},
	}
}
