package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"reconforge/pkg/artifacts"
	"reconforge/pkg/concurrency"
	"reconforge/pkg/config"
	"reconforge/pkg/governor"
	"reconforge/pkg/helpers"
	"reconforge/pkg/logger"
	"reconforge/pkg/models"
	"reconforge/pkg/notifier"
	"reconforge/pkg/pathguard"
	"reconforge/pkg/pipeline"
	"reconforge/pkg/registry"
	"reconforge/pkg/runner"
	"reconforge/pkg/state"
	"reconforge/pkg/stages"
	"reconforge/pkg/validators"
)

// exit codes per spec.md §6
const (
	exitOK                = 0
	exitStagesFailed      = 1
	exitInvalidInvocation = 2
	exitInternal          = 3
)

// CLI mirrors the flag table in spec.md §6, parsed by kong.
type CLI struct {
	Domain      []string `name:"domain" short:"d" help:"Target FQDN (repeatable)."`
	Output      string   `name:"output" short:"o" help:"Run-root parent directory." default:"./recon_results"`
	Threads     int      `name:"threads" short:"t" help:"Governor permits."`
	Wordlist    string   `name:"wordlist" short:"w" help:"Brute-force wordlist path."`
	PassiveOnly bool     `name:"passive-only" help:"Exclude active stages."`
	Include     string   `name:"include" help:"Scope-include regex applied after discovery."`
	Exclude     string   `name:"exclude" help:"Scope-exclude regex applied after discovery."`
	Resume      bool     `name:"resume" help:"Resume from a prior run's state journal if the config hash matches."`
	Config      string   `name:"config" type:"path" help:"YAML config file; CLI flags override its values."`
	Webhook     string   `name:"webhook" help:"POST the completed run's summary.json here."`
	Authorized  bool     `name:"i-understand-this-requires-authorization" help:"Required acknowledgement that this target is in-scope and authorized."`
	Strict      bool     `name:"strict" help:"A FAILED stage causes the run to exit nonzero."`
	LogFile     string   `name:"log-file" help:"Additionally write redacted JSON log lines here."`
	Verbose     bool     `name:"verbose" short:"v" help:"Debug-level logging."`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("recon"),
		kong.Description("Staged external-recon engine."),
		kong.UsageOnError(),
	)

	loader := config.Loader{CLI: config.CLI{
		Domains:     cli.Domain,
		OutputDir:   cli.Output,
		Threads:     cli.Threads,
		Wordlist:    cli.Wordlist,
		PassiveOnly: cli.PassiveOnly,
		Include:     cli.Include,
		Exclude:     cli.Exclude,
		Resume:      cli.Resume,
		ConfigFile:  cli.Config,
		WebhookURL:  cli.Webhook,
		Authorized:  cli.Authorized,
		Strict:      cli.Strict,
		LogFile:     cli.LogFile,
		Verbose:     cli.Verbose,
	}}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "recon: loading config: %v\n", err)
		os.Exit(exitInvalidInvocation)
	}

	if !cfg.Authorized {
		fmt.Fprintln(os.Stderr, "recon: --i-understand-this-requires-authorization is required; refusing to invoke any tool")
		os.Exit(exitInvalidInvocation)
	}
	if len(cfg.Domains) == 0 {
		fmt.Fprintln(os.Stderr, "recon: at least one -d/--domain (or RECON_DOMAIN env var) is required")
		os.Exit(exitInvalidInvocation)
	}

	log, err := logger.New(cfg.LogFile, cfg.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recon: building logger: %v\n", err)
		os.Exit(exitInternal)
	}
	entry := logrus.NewEntry(log)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		entry.Warn("signal received, cancelling in-flight stages")
		cancel()
	}()
	defer cancel()

	completed := concurrency.NewCompletedTargets()

	var mu sync.Mutex
	exitCode := exitOK

	targetCh := make(chan string, len(cfg.Domains))
	for _, raw := range cfg.Domains {
		target, err := validators.ValidateTargetFQDN(raw)
		if err != nil {
			entry.WithError(err).WithField("target", raw).Error("target rejected")
			exitCode = exitInvalidInvocation
			continue
		}
		targetCh <- target
	}
	close(targetCh)

	batchSize := cfg.Threads
	if batchSize < 1 {
		batchSize = 1
	}

	recordResult := func(target string, code int, err error) {
		if err != nil {
			entry.WithError(err).WithField("target", target).Error("run failed")
		}
		mu.Lock()
		if code != exitOK && exitCode == exitOK {
			exitCode = code
		}
		mu.Unlock()
		completed.Add(target)
	}

	// Domains arrive on targetCh in validated-FQDN form; drain them in
	// Threads-sized batches and run each batch's targets concurrently, so a
	// multi-domain invocation fans out instead of scanning one host at a
	// time end to end.
	for {
		batch := helpers.ReadNTargetsFromChannel(targetCh, batchSize)
		if len(batch) == 0 {
			break
		}

		var wg sync.WaitGroup
		for _, target := range batch {
			wg.Add(1)
			go func(target string) {
				defer wg.Done()
				runCfg := *cfg
				runCfg.Domains = []string{target}
				code, err := runOne(ctx, &runCfg, entry)
				recordResult(target, code, err)
			}(target)
		}
		wg.Wait()
	}

	entry.WithField("targets_completed", completed.Len()).Info("all targets processed")
	os.Exit(exitCode)
}

// runOne executes one complete pipeline run against a single validated
// target and returns the process exit code that run contributes.
func runOne(ctx context.Context, cfg *models.Config, log *logrus.Entry) (int, error) {
	target := cfg.FirstTarget()
	runID, rootDir := newRunID(target), ""
	if cfg.Resume {
		if prior, ok := findResumableRun(cfg.OutputDir, target); ok {
			runID = prior
			log.WithField("run_id", runID).Info("resuming prior run directory")
		}
	}
	rootDir = filepath.Join(cfg.OutputDir, runID)

	guard, err := pathguard.New(rootDir)
	if err != nil {
		return exitInternal, fmt.Errorf("building path guard: %w", err)
	}
	store := artifacts.New(guard)
	reg := registry.New(cfg.ToolOverrides, "./bin")
	run := models.NewRun(runID, models.Target{
		FQDN:            target,
		IncludePatterns: splitPattern(cfg.Include),
		ExcludePatterns: splitPattern(cfg.Exclude),
	}, rootDir, "")

	stageCtx := &stages.Context{
		Config:    cfg,
		Registry:  reg,
		Runner:    runner.New(runner.WithAllowedEnv(cfg.AllowedEnv)),
		Governor:  governor.New(int64(cfg.Threads), cfg.CircuitThreshold, cfg.CircuitCooldown, cfg.CircuitCooldownCap),
		Artifacts: store,
		Guard:     guard,
		Log:       log.WithField("target", target),
		IDs:       helpers.IDGenerator(),
	}
	engine := pipeline.New(cfg.Strict)
	stageNames := registerStages(engine, stageCtx)
	run.ConfigHash = cfg.Hash(stageNames)

	journal := state.Open(rootDir)
	if cfg.Resume && journal.Exists() {
		rec, err := journal.Load()
		if err != nil {
			log.WithError(err).Warn("ignoring unreadable state journal")
		} else {
			if err := engine.Plan(run); err != nil {
				return exitInternal, err
			}
			if stale := state.Reconcile(run, rec, store); stale {
				log.Warn("state journal is stale (config changed); starting fresh")
			} else {
				log.Info("resumed from prior state journal")
			}
		}
	}

	runErr := engine.Run(ctx, run)
	run.EndedAt = time.Now()

	if err := journal.Save(state.BuildRecord(run, stageCtx.Governor.Snapshot())); err != nil {
		log.WithError(err).Error("failed to persist state journal")
	}

	deliverWebhook(ctx, cfg, store, log)

	if runErr != nil {
		if cfg.Strict {
			return exitStagesFailed, runErr
		}
		log.WithError(runErr).Warn("one or more stages failed (non-strict: run still reports success)")
	}
	return exitOK, nil
}

// registerStages wires every stage named in the catalog onto engine and
// returns their names, used as Config.Hash's stage-set input.
func registerStages(engine *pipeline.Engine, c *stages.Context) []string {
	resolver := stages.MinerDNSResolver{}
	all := []pipeline.Stage{
		stages.PassiveEnum(c),
		stages.WordlistEnum(c, resolver),
		stages.MergeSubdomains(c),
		stages.DNSResolve(c),
		stages.ProbeHTTP(c),
		stages.Screenshot(c),
		stages.TakeoverCheck(c),
		stages.Crawl(c),
		stages.JSAnalyze(c),
		stages.ParamDiscover(c),
		stages.DirFuzz(c),
		stages.PortScan(c),
		stages.VulnScan(c, models.SeverityInfo),
		stages.Aggregate(c),
		stages.Report(c),
	}
	names := make([]string, 0, len(all))
	for _, s := range all {
		engine.Add(s)
		names = append(names, s.Name)
	}
	return names
}

// newRunID mints a fresh "<target>_<UTC-timestamp>" run identifier.
func newRunID(target string) string {
	return fmt.Sprintf("%s_%s", target, time.Now().UTC().Format("20060102T150405Z"))
}

// findResumableRun looks for the most recent existing run directory under
// outputDir whose name matches "<target>_<timestamp>", since --resume has
// no run directory of its own to go on (runID is minted fresh on every
// invocation). Directory names sort lexically by timestamp, so the last
// match in sorted order is the most recent. Returns ok=false if no prior
// run directory for target exists, in which case the caller mints a fresh
// run ID and starts from scratch.
func findResumableRun(outputDir, target string) (runID string, ok bool) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return "", false
	}
	prefix := target + "_"
	var candidates []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			candidates = append(candidates, e.Name())
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	return candidates[len(candidates)-1], true
}

// deliverWebhook reads the run's summary.json (if aggregate produced one)
// and posts it through the configured Notifier. Failure is logged, never
// fatal, per spec.md §6.
func deliverWebhook(ctx context.Context, cfg *models.Config, store *artifacts.Store, log *logrus.Entry) {
	var n notifier.Notifier = notifier.NoopNotifier{}
	if cfg.WebhookURL != "" {
		n = notifier.New(cfg.WebhookURL, 10*time.Second)
	}

	raw, err := store.Read(models.Artifact{Path: "summary.json"})
	if err != nil {
		if cfg.WebhookURL != "" {
			log.WithError(err).Warn("webhook configured but summary.json is missing; skipping delivery")
		}
		return
	}
	var parsed json.RawMessage
	if err := json.Unmarshal(raw, &parsed); err != nil {
		log.WithError(err).Warn("summary.json is not valid JSON; skipping webhook delivery")
		return
	}

	notifyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := n.Notify(notifyCtx, raw); err != nil {
		log.WithError(err).Warn("webhook delivery failed")
	}
}

func splitPattern(p string) []string {
	if p == "" {
		return nil
	}
	return []string{p}
}
