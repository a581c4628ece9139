package reporter

import (
	"bufio"
	"bytes"
	"encoding/json"

	"reconforge/pkg/artifacts"
	"reconforge/pkg/models"
)

const reconEngineVersion = "1.0.0"

// Aggregate builds a Summary by reading the Run's existing artifacts. It
// never invokes a tool and never fabricates a number not already present
// on disk, per spec.md §4.7 ("adds no new data").
func Aggregate(run *models.Run, store *artifacts.Store) (Summary, error) {
	var s Summary
	s.ScanInfo.Target = run.Target.FQDN
	s.ScanInfo.Start = run.StartedAt
	s.ScanInfo.End = run.EndedAt
	if !run.EndedAt.IsZero() {
		s.ScanInfo.Duration = run.EndedAt.Sub(run.StartedAt)
	}
	s.ScanInfo.Version = reconEngineVersion

	for _, stage := range run.Stages() {
		snap := stage.Snapshot()
		s.ScanInfo.Stages = append(s.ScanInfo.Stages, StageSummary{
			Name:     snap.Name,
			State:    string(snap.State),
			Duration: snap.Duration(),
			Reason:   snap.Reason,
		})
	}

	if lines, err := readLines(store, "subdomains/all.txt"); err == nil {
		s.Statistics.SubdomainsFound = len(lines)
	}
	if lines, err := readLines(store, "subdomains/live.txt"); err == nil {
		s.Statistics.LiveHosts = len(lines)
	}
	if lines, err := readLines(store, "endpoints/urls.txt"); err == nil {
		s.Statistics.EndpointsDiscovered = len(lines)
	}
	if lines, err := readLines(store, "js/files.txt"); err == nil {
		s.Statistics.JSFilesAnalyzed = len(lines)
	}

	var nuclei []struct {
		Severity models.Severity `json:"severity"`
	}
	if b, err := store.Read(models.Artifact{Path: "vulns/nuclei.json"}); err == nil {
		json.Unmarshal(b, &nuclei)
	}
	var takeovers []struct {
		Severity models.Severity `json:"severity"`
	}
	if b, err := store.Read(models.Artifact{Path: "vulns/takeovers.json"}); err == nil {
		json.Unmarshal(b, &takeovers)
	}

	tally := func(sev models.Severity) {
		switch sev {
		case models.SeverityCritical:
			s.Findings.Critical++
		case models.SeverityHigh:
			s.Findings.High++
		case models.SeverityMedium:
			s.Findings.Medium++
		case models.SeverityLow:
			s.Findings.Low++
		case models.SeverityInfo:
			s.Findings.Info++
		}
	}
	for _, f := range nuclei {
		tally(f.Severity)
	}
	for _, f := range takeovers {
		tally(f.Severity)
	}
	s.Statistics.Vulnerabilities = len(nuclei) + len(takeovers)

	return s, nil
}

func readLines(store *artifacts.Store, path string) ([]string, error) {
	b, err := store.Read(models.Artifact{Path: path})
	if err != nil {
		return nil, err
	}
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
