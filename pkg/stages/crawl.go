package stages

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"reconforge/pkg/models"
	"reconforge/pkg/pipeline"
)

// Crawl builds the crawl stage: katana against live hosts, depth-limited.
// Splits katana's combined URL stream into page URLs and .js file URLs.
func Crawl(c *Context) pipeline.Stage {
	return pipeline.Stage{
		Name:      "crawl",
		DependsOn: []string{"probe_http"},
		Run: func(ctx context.Context, run *models.Run) error {
			live, err := readLinesIfExists(c, "subdomains", "live.txt")
			if err != nil {
				return err
			}

			depth := c.Config.CrawlDepth
			if depth <= 0 {
				depth = 3
			}

			var urls, jsFiles []string
			target := run.Target.FQDN
			for _, host := range live {
				args := []string{"-u", host, "-silent", "-depth", strconv.Itoa(depth), "-jc"}
				res, err := c.invoke(ctx, "katana", target, args, c.Config.StageTimeout("crawl", 0))
				if err != nil {
					c.Log.WithError(err).WithField("host", host).Warn("crawl skipped host")
					continue
				}
				for _, line := range splitLines(res.Stdout) {
					urls = append(urls, line)
					if hasJSExt(line) {
						jsFiles = append(jsFiles, line)
					}
				}
			}

			urlsArt, err := c.Artifacts.Write("endpoints", "urls.txt", linesToBytes(dedupeSorted(urls)), models.ContentTextLines)
			if err != nil {
				return err
			}
			jsArt, err := c.Artifacts.Write("js", "files.txt", linesToBytes(dedupeSorted(jsFiles)), models.ContentTextLines)
			if err != nil {
				return err
			}
			rec := run.Stage("crawl")
			rec.AddOutput(urlsArt.ID)
			rec.AddOutput(jsArt.ID)
			return nil
		},
	}
}

func hasJSExt(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.HasSuffix(rawURL, ".js")
	}
	return strings.HasSuffix(u.Path, ".js") || strings.HasSuffix(u.Path, ".mjs")
}
