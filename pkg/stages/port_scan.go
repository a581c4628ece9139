package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"reconforge/internal/nmap"
	"reconforge/pkg/models"
	"reconforge/pkg/pipeline"
)

// PortScan builds port_scan: nmap top-1000-ports against a capped number
// of resolved hosts (default 5), per the catalog.
func PortScan(c *Context) pipeline.Stage {
	return pipeline.Stage{
		Name:      "port_scan",
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

			limit := c.Config.PortScanHosts
			if limit <= 0 {
				limit = 5
			}
			if len(resolved) > limit {
				resolved = resolved[:limit]
			}

			nmapDir, err := c.resolveDir("nmap")
			if err != nil {
				return err
			}

			var outputs []string
			for _, rh := range resolved {
				xmlPath := filepath.Join(nmapDir, filenameSafe(rh.Host)+".xml")
				args := []string{"-sTV", "--top-ports", "1000", "-oX", xmlPath, rh.Host}
				res, err := c.invoke(ctx, "nmap", rh.Host, args, c.Config.StageTimeout("port_scan", 0))
				if err != nil {
					c.Log.WithError(err).WithField("host", rh.Host).Warn("port_scan skipped host")
					continue
				}
				if !res.Succeeded() {
					continue
				}

				parsed, err := nmap.ReadXML(xmlPath)
				if err != nil {
					c.Log.WithError(err).WithField("host", rh.Host).Warn("port_scan could not parse nmap XML")
					continue
				}

				summary := fmt.Sprintf("host %s: %d host record(s) with open ports\n", rh.Host, len(parsed.OpenPorts()))
				art, err := c.Artifacts.Write("nmap", filenameSafe(rh.Host)+".txt", []byte(summary), models.ContentTextLines)
				if err != nil {
					return err
				}
				outputs = append(outputs, art.ID)
			}

			rec := run.Stage("port_scan")
			for _, id := range outputs {
				rec.AddOutput(id)
			}
			return nil
		},
	}
}
