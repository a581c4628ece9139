package reporter

import (
	"bytes"
	"embed"
	"html/template"
	txttemplate "text/template"

	"reconforge/pkg/redactor"
)

//go:embed assets/chart.min.js
var staticAssets embed.FS

const markdownTemplate = `# Recon Summary — {{.ScanInfo.Target}}

**Run window:** {{.ScanInfo.Start.Format "2006-01-02 15:04:05"}} — {{.ScanInfo.End.Format "2006-01-02 15:04:05"}}

## Statistics

- Subdomains found: {{.Statistics.SubdomainsFound}}
- Live hosts: {{.Statistics.LiveHosts}}
- Vulnerabilities: {{.Statistics.Vulnerabilities}}
- Endpoints discovered: {{.Statistics.EndpointsDiscovered}}
- JS files analyzed: {{.Statistics.JSFilesAnalyzed}}

## Findings

| Severity | Count |
|---|---|
| Critical | {{.Findings.Critical}} |
| High | {{.Findings.High}} |
| Medium | {{.Findings.Medium}} |
| Low | {{.Findings.Low}} |
| Info | {{.Findings.Info}} |

{{if .TopFindings}}## Top Findings

| Severity | Category | Host | Evidence |
|---|---|---|---|
{{range .TopFindings}}| {{.Severity}} | {{.Category}} | {{.TargetHost}} | {{.RedactedEvidence}} |
{{end}}
{{end}}
## Stages

| Stage | State | Duration |
|---|---|---|
{{range .ScanInfo.Stages}}| {{.Name}} | {{.State}} | {{.Duration}} |
{{end}}
`

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Recon Summary — {{.ScanInfo.Target}}</title>
  <script>{{.ChartJS}}</script>
  <style>
    body { font-family: sans-serif; margin: 2rem; }
    table { border-collapse: collapse; }
    td, th { border: 1px solid #ccc; padding: 4px 10px; }
    .critical { color: #b00020; } .high { color: #d9732c; }
  </style>
</head>
<body>
  <h1>Recon Summary — {{.ScanInfo.Target}}</h1>
  <p>{{.ScanInfo.Start.Format "2006-01-02 15:04:05"}} — {{.ScanInfo.End.Format "2006-01-02 15:04:05"}}</p>

  <h2>Statistics</h2>
  <ul>
    <li>Subdomains found: {{.Statistics.SubdomainsFound}}</li>
    <li>Live hosts: {{.Statistics.LiveHosts}}</li>
    <li>Vulnerabilities: {{.Statistics.Vulnerabilities}}</li>
    <li>Endpoints discovered: {{.Statistics.EndpointsDiscovered}}</li>
    <li>JS files analyzed: {{.Statistics.JSFilesAnalyzed}}</li>
  </ul>

  <h2>Findings</h2>
  <table>
    <tr><th>Severity</th><th>Count</th></tr>
    <tr class="critical"><td>Critical</td><td>{{.Findings.Critical}}</td></tr>
    <tr class="high"><td>High</td><td>{{.Findings.High}}</td></tr>
    <tr><td>Medium</td><td>{{.Findings.Medium}}</td></tr>
    <tr><td>Low</td><td>{{.Findings.Low}}</td></tr>
    <tr><td>Info</td><td>{{.Findings.Info}}</td></tr>
  </table>

  <canvas id="severityChart" width="400" height="200"></canvas>
  <script>
    ReconChart.renderSeverityBars("severityChart", {
      critical: {{.Findings.Critical}},
      high: {{.Findings.High}},
      medium: {{.Findings.Medium}},
      low: {{.Findings.Low}},
      info: {{.Findings.Info}}
    });
  </script>

  {{if .TopFindings}}<h2>Top Findings</h2>
  <table>
    <tr><th>Severity</th><th>Category</th><th>Host</th><th>Evidence</th></tr>
    {{range .TopFindings}}<tr><td>{{.Severity}}</td><td>{{.Category}}</td><td>{{.TargetHost}}</td><td>{{.RedactedEvidence}}</td></tr>
    {{end}}
  </table>{{end}}

  <h2>Stages</h2>
  <table>
    <tr><th>Stage</th><th>State</th><th>Duration</th></tr>
    {{range .ScanInfo.Stages}}<tr><td>{{.Name}}</td><td>{{.State}}</td><td>{{.Duration}}</td></tr>
    {{end}}
  </table>
</body>
</html>
`

// htmlReportData adds the embedded Chart.js bundle to Summary for the HTML
// template, kept out of Summary itself so summary.json never carries it.
type htmlReportData struct {
	Summary
	ChartJS template.JS
}

// RenderMarkdown renders reports/summary.md from s.
func RenderMarkdown(s Summary) ([]byte, error) {
	tmpl, err := txttemplate.New("summary.md").Parse(markdownTemplate)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, redactSummary(s)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderHTML renders reports/full_report.html from s, with the Chart.js
// bundle inlined from the embedded asset — no external network fetches, as
// required by the catalog.
func RenderHTML(s Summary) ([]byte, error) {
	chartJS, err := staticAssets.ReadFile("assets/chart.min.js")
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("full_report.html").Parse(htmlTemplate)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	data := htmlReportData{Summary: redactSummary(s), ChartJS: template.JS(chartJS)}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// redactSummary passes every finding category/evidence string through the
// Redactor before it reaches a rendered report, per spec.md §4.7.
func redactSummary(s Summary) Summary {
	for i, f := range s.TopFindings {
		s.TopFindings[i].Category = redactor.Redact(f.Category)
		s.TopFindings[i].RedactedEvidence = redactor.Redact(f.RedactedEvidence)
	}
	for i, stage := range s.ScanInfo.Stages {
		s.ScanInfo.Stages[i].Reason = redactor.Redact(stage.Reason)
	}
	return s
}
