package stages

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"regexp"
	"time"

	"reconforge/pkg/models"
	"reconforge/pkg/pipeline"
	"reconforge/pkg/redactor"
)

// endpointPattern finds path-like string literals in JS source, a cheap
// heuristic for js_analyze's endpoint-discovery half.
var endpointPattern = regexp.MustCompile(`["'](/[a-zA-Z0-9_\-./]{2,}?)["']`)

// JSAnalyze builds js_analyze: fetches every JS file crawl found and scans
// it for secret shapes (reusing the Redactor's catalog in detect-not-redact
// mode, so secrets.txt keeps the raw value for the operator to act on) and
// path-like endpoint literals.
func JSAnalyze(c *Context) pipeline.Stage {
	return pipeline.Stage{
		Name:      "js_analyze",
		DependsOn: []string{"crawl"},
		Run: func(ctx context.Context, run *models.Run) error {
			jsFiles, err := readLinesIfExists(c, "js", "files.txt")
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: 15 * time.Second}
			var secrets, endpoints []string

			for _, jsURL := range jsFiles {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, jsURL, nil)
				if err != nil {
					continue
				}
				resp, err := client.Do(req)
				if err != nil {
					c.Log.WithError(err).WithField("url", jsURL).Warn("js_analyze could not fetch file")
					continue
				}
				body := make([]byte, 0, 64*1024)
				buf := make([]byte, 32*1024)
				for {
					n, readErr := resp.Body.Read(buf)
					if n > 0 {
						body = append(body, buf[:n]...)
					}
					if readErr != nil {
						break
					}
					if len(body) > 2<<20 {
						break
					}
				}
				resp.Body.Close()

				text := string(body)
				scanner := bufio.NewScanner(bytes.NewReader(body))
				scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
				for scanner.Scan() {
					line := scanner.Text()
					if kinds := redactor.Detect(line); len(kinds) > 0 {
						secrets = append(secrets, jsURL+": "+line)
					}
				}
				for _, m := range endpointPattern.FindAllStringSubmatch(text, -1) {
					endpoints = append(endpoints, m[1])
				}
			}

			secretsArt, err := c.Artifacts.Write("js", "secrets.txt", linesToBytes(dedupeSorted(secrets)), models.ContentTextLines)
			if err != nil {
				return err
			}
			endpointsArt, err := c.Artifacts.Write("js", "endpoints.txt", linesToBytes(dedupeSorted(endpoints)), models.ContentTextLines)
			if err != nil {
				return err
			}
			rec := run.Stage("js_analyze")
			rec.AddOutput(secretsArt.ID)
			rec.AddOutput(endpointsArt.ID)
			return nil
		},
	}
}
