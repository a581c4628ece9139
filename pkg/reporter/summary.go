// Package reporter reads a completed Run's artifacts and renders the
// operator-facing summary: summary.json, reports/summary.md, and
// reports/full_report.html. It never contacts a tool or the network — all
// of its inputs are files already on disk.
package reporter

import (
	"time"

	"reconforge/pkg/models"
)

// StageSummary is one row of scan_info.stages in summary.json.
type StageSummary struct {
	Name     string        `json:"name"`
	State    string        `json:"state"`
	Duration time.Duration `json:"duration_ms"`
	Reason   string        `json:"reason,omitempty"`
}

// Summary is the exact shape of summary.json from spec.md §4.7. Every field
// is reproducible from the Run's artifacts — the aggregator adds no data
// of its own.
type Summary struct {
	ScanInfo struct {
		Target   string         `json:"target"`
		Start    time.Time      `json:"start"`
		End      time.Time      `json:"end"`
		Duration time.Duration  `json:"duration_ms"`
		Version  string         `json:"version"`
		Stages   []StageSummary `json:"stages"`
	} `json:"scan_info"`

	Statistics struct {
		SubdomainsFound      int `json:"subdomains_found"`
		LiveHosts            int `json:"live_hosts"`
		Vulnerabilities      int `json:"vulnerabilities"`
		EndpointsDiscovered  int `json:"endpoints_discovered"`
		JSFilesAnalyzed      int `json:"js_files_analyzed"`
	} `json:"statistics"`

	Findings struct {
		Critical int `json:"critical"`
		High     int `json:"high"`
		Medium   int `json:"medium"`
		Low      int `json:"low"`
		Info     int `json:"info"`
	} `json:"findings"`

	TopFindings []models.Finding `json:"top_findings,omitempty"`
}
