// Package stages implements the fifteen pipeline stages named in the stage
// catalog: enumeration, resolution, probing, screenshotting, takeover
// checking, crawling, JS analysis, parameter discovery, directory fuzzing,
// port scanning, vulnerability scanning, and the aggregate/report pair.
package stages

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"reconforge/pkg/artifacts"
	"reconforge/pkg/governor"
	"reconforge/pkg/helpers"
	"reconforge/pkg/models"
	"reconforge/pkg/pathguard"
	"reconforge/pkg/registry"
	"reconforge/pkg/runner"
)

// Context carries everything a stage body needs, threaded explicitly
// instead of read off globals.
type Context struct {
	Config    *models.Config
	Registry  *registry.Registry
	Runner    *runner.Runner
	Governor  *governor.Governor
	Artifacts *artifacts.Store
	Guard     *pathguard.Guard
	Log       *logrus.Entry
	IDs       *helpers.InvocationIDs
}

// resolveDir resolves rel under the run root and ensures it exists, for
// tools that write their own files directly (gowitness screenshots, nmap
// XML reports) instead of going through the Artifact Store's atomic Write.
func (c *Context) resolveDir(rel string) (string, error) {
	abs, err := c.Guard.Resolve(rel)
	if err != nil {
		return "", err
	}
	if err := mkdirAll(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// invoke resolves tool on the Registry, acquires a Governor slot for
// target, runs it, and records the outcome on the breaker. Returns
// ErrToolMissing or ErrCircuitOpen without ever starting a process in
// those cases.
func (c *Context) invoke(ctx context.Context, tool, target string, args []string, deadline time.Duration) (models.InvocationResult, error) {
	path, err := c.Registry.Locate(tool)
	if err != nil {
		return models.InvocationResult{}, fmt.Errorf("%w: %s", models.ErrToolMissing, tool)
	}

	release, err := c.Governor.Acquire(ctx, target)
	if err != nil {
		return models.InvocationResult{}, err
	}
	defer release()

	argv := append([]string{path}, args...)
	inv := models.ToolInvocation{Argv: argv, ExpectedTool: tool}
	if deadline > 0 {
		inv.Deadline = time.Now().Add(deadline)
	}

	invocationID := ""
	if c.IDs != nil {
		invocationID = c.IDs.Generate().String()
	}
	log := c.Log.WithFields(logrus.Fields{"invocation_id": invocationID, "tool": tool, "target": target})
	log.Debug("invoking tool")

	res, err := c.Runner.Invoke(ctx, inv)
	if err != nil {
		return res, err
	}
	if res.Succeeded() {
		c.Governor.RecordSuccess(target)
	} else {
		c.Governor.RecordFailure(target)
	}
	return res, nil
}

// splitLines splits tool stdout into trimmed, non-empty lines.
func splitLines(b []byte) []string {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(b))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// unionSorted merges any number of line sets into a deduped, lowercased,
// lexically sorted slice — the order-insensitive merge §5 requires so that
// tool run order never affects the artifact's bytes.
func unionSorted(sets ...[]string) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, s := range set {
			seen[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		if s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// dedupeSorted merges line sets without lowercasing, for artifacts where
// case is meaningful (raw secret excerpts, URLs, JS source paths).
func dedupeSorted(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range sets {
		for _, s := range set {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

// filenameSafe strips scheme and replaces path-unsafe characters in a
// host/URL so it can be used as a per-host artifact filename.
func filenameSafe(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	replacer := strings.NewReplacer("/", "_", ":", "_", "?", "_", "#", "_")
	return replacer.Replace(s)
}

func linesToBytes(lines []string) []byte {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
