package stages

import (
	"context"

	"reconforge/pkg/models"
	"reconforge/pkg/pipeline"
)

// ParamDiscover builds param_discover: arjun against a capped sample of
// crawled URLs, default cap 50 per the catalog.
func ParamDiscover(c *Context) pipeline.Stage {
	return pipeline.Stage{
		Name:      "param_discover",
		DependsOn: []string{"probe_http", "crawl"},
		Run: func(ctx context.Context, run *models.Run) error {
			urls, err := readLinesIfExists(c, "endpoints", "urls.txt")
			if err != nil {
				return err
			}

			limit := c.Config.ParamDiscoverN
			if limit <= 0 {
				limit = 50
			}
			if len(urls) > limit {
				urls = urls[:limit]
			}

			target := run.Target.FQDN
			var params []string
			for _, u := range urls {
				res, err := c.invoke(ctx, "arjun", target, []string{"-u", u, "-oT", "/dev/stdout", "-q"}, c.Config.StageTimeout("param_discover", 0))
				if err != nil {
					c.Log.WithError(err).WithField("url", u).Warn("param_discover skipped url")
					continue
				}
				params = append(params, splitLines(res.Stdout)...)
			}

			art, err := c.Artifacts.Write("params", "parameters.txt", linesToBytes(dedupeSorted(params)), models.ContentTextLines)
			if err != nil {
				return err
			}
			run.Stage("param_discover").AddOutput(art.ID)
			return nil
		},
	}
}
