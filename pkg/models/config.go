package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Config is the immutable, merged CLI+YAML+env configuration for a Run.
type Config struct {
	Domains    []string `yaml:"domains"`
	OutputDir  string   `yaml:"output"`
	Threads    int      `yaml:"threads"`
	Wordlist   string   `yaml:"wordlist"`
	PassiveOnly bool    `yaml:"passive_only"`
	Include    string   `yaml:"include"`
	Exclude    string   `yaml:"exclude"`
	Resume     bool     `yaml:"-"`
	ConfigFile string   `yaml:"-"`
	WebhookURL string   `yaml:"webhook"`
	Authorized bool     `yaml:"-"`
	Strict     bool     `yaml:"strict"`
	LogFile    string   `yaml:"log_file"`
	Verbose    bool     `yaml:"verbose"`

	CircuitThreshold   int           `yaml:"circuit_threshold"`
	CircuitCooldown    time.Duration `yaml:"circuit_cooldown"`
	CircuitCooldownCap time.Duration `yaml:"circuit_cooldown_cap"`
	RequestsPerSecond  float64       `yaml:"requests_per_second"`

	StageTimeouts map[string]time.Duration `yaml:"stage_timeouts"`
	AllowedEnv    []string                 `yaml:"allowed_env"`
	ToolOverrides map[string]string        `yaml:"tool_paths"`

	CrawlDepth      int `yaml:"crawl_depth"`
	ParamDiscoverN  int `yaml:"param_discover_urls"`
	DirFuzzHosts    int `yaml:"dir_fuzz_hosts"`
	PortScanHosts   int `yaml:"port_scan_hosts"`
}

// Defaults returns a Config with every spec.md-mandated default filled in.
func Defaults() *Config {
	return &Config{
		OutputDir:          "./recon_results",
		Threads:            10,
		CircuitThreshold:   10,
		CircuitCooldown:    60 * time.Second,
		CircuitCooldownCap: 600 * time.Second,
		StageTimeouts:      map[string]time.Duration{},
		AllowedEnv:         []string{"PATH", "HOME"},
		ToolOverrides:      map[string]string{},
		CrawlDepth:         3,
		ParamDiscoverN:     50,
		DirFuzzHosts:       10,
		PortScanHosts:      5,
	}
}

// StageTimeout returns the configured budget for stage, falling back to def.
func (c *Config) StageTimeout(stage string, def time.Duration) time.Duration {
	if d, ok := c.StageTimeouts[stage]; ok && d > 0 {
		return d
	}
	return def
}

// hashable is the subset of Config that invalidates a resumed run if it
// changes — per spec.md §4.8 ("target, scope patterns, or stage-set hash").
type hashable struct {
	Domains     []string
	Include     string
	Exclude     string
	PassiveOnly bool
	Stages      []string
}

// Hash computes a stable digest of the resume-relevant configuration,
// deliberately excluding tool versions (Open Question #3).
func (c *Config) Hash(stageNames []string) string {
	sorted := append([]string(nil), stageNames...)
	sort.Strings(sorted)
	h := hashable{
		Domains:     append([]string(nil), c.Domains...),
		Include:     c.Include,
		Exclude:     c.Exclude,
		PassiveOnly: c.PassiveOnly,
		Stages:      sorted,
	}
	sort.Strings(h.Domains)
	b, _ := json.Marshal(h)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// FirstTarget returns the lowercased primary domain, or "" if none configured.
func (c *Config) FirstTarget() string {
	if len(c.Domains) == 0 {
		return ""
	}
	return strings.ToLower(c.Domains[0])
}
