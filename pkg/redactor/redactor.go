// Package redactor scrubs secrets out of text before it reaches a log line,
// an artifact excerpt, or a rendered report. It is a pure function over a
// fixed catalog of regexes — no state, no I/O.
package redactor

import "regexp"

// kind labels a catalog entry; it becomes the "<kind>" in a [REDACTED:<kind>]
// replacement so a reader can tell what was scrubbed without seeing it.
type pattern struct {
	kind string
	re   *regexp.Regexp
}

var catalog = []pattern{
	{"aws_access_key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"aws_secret_key", regexp.MustCompile(`(?i)aws_secret_access_key\s*[:=]\s*['"]?[A-Za-z0-9/+=]{40}['"]?`)},
	{"gcp_api_key", regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{35}\b`)},
	{"slack_token", regexp.MustCompile(`\bxox[baprs]-[0-9A-Za-z-]{10,}\b`)},
	{"github_token", regexp.MustCompile(`\bgh[pousr]_[0-9A-Za-z]{36,}\b`)},
	{"cloud_sk_key", regexp.MustCompile(`\bsk-[A-Za-z0-9]{20,}\b`)},
	{"private_key_block", regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH |DSA )?PRIVATE KEY-----[\s\S]*?-----END (?:RSA |EC |OPENSSH |DSA )?PRIVATE KEY-----`)},
	{"jwt", regexp.MustCompile(`\bey[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`)},
	{"bearer_token", regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._\-]{16,}\b`)},
	{"basic_auth_header", regexp.MustCompile(`(?i)\bauthorization:\s*basic\s+[A-Za-z0-9+/=]{8,}`)},
	{"generic_api_key", regexp.MustCompile(`(?i)\b(api[_-]?key|secret|token|passwd|password)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{12,}['"]?`)},
	{"url_userinfo", regexp.MustCompile(`(?i)\b(?:https?|ftp)://[^\s/:@]+:[^\s/@]+@`)},
}

// Redact returns s with every catalog match replaced by "[REDACTED:<kind>]".
// Overlapping matches are resolved by catalog order: earlier entries win.
func Redact(s string) string {
	for _, p := range catalog {
		s = p.re.ReplaceAllString(s, "[REDACTED:"+p.kind+"]")
	}
	return s
}

// Detect reports every kind found in s without modifying it, used by
// js_analyze's detect-not-redact mode to surface findings for the report
// instead of scrubbing them from a line meant to be read.
func Detect(s string) []string {
	var kinds []string
	seen := make(map[string]bool)
	for _, p := range catalog {
		if p.re.MatchString(s) && !seen[p.kind] {
			seen[p.kind] = true
			kinds = append(kinds, p.kind)
		}
	}
	return kinds
}
