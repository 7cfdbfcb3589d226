// Command dagtalk turns plain-language instructions into Airflow control
// calls.
//
// Usage:
//
//	dagtalk                          interactive console
//	dagtalk [flags] <instruction>    one-shot invocation
//
// Flags:
//
//	-config string     Path to config file (default: ~/.dagtalk/config.yaml)
//	-resolver string   Resolver: rule, openai, gemini (auto-detected from env vars if omitted)
//	-model string      Model ID for model-backed resolvers
//	-yes               Approve run-starting instructions without prompting
//	-dry-run           Resolve the instruction and stop before executing
//	-timeout duration  Bound on each resolver and orchestrator call
//	-no-catalog        Skip the DAG catalog listing before resolution
//	-log-level string  Log level: debug, info, warn, error
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/dagtalk/dagtalk"
	"github.com/dagtalk/dagtalk/airflow"
	"github.com/dagtalk/dagtalk/audit"
	bt "github.com/dagtalk/dagtalk/bubbletea"
	"github.com/dagtalk/dagtalk/colorlog"
	"github.com/dagtalk/dagtalk/config"
	"github.com/dagtalk/dagtalk/driver"
	"github.com/dagtalk/dagtalk/markdown"
)

// renderWidth bounds one-shot terminal output. The interactive console
// sizes itself from the terminal instead.
const renderWidth = 100

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dagtalk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse flags.
	var (
		configPath   = flag.String("config", "", "Path to config file (default: ~/.dagtalk/config.yaml)")
		resolverFlag = flag.String("resolver", "", "Resolver: rule, openai, gemini (auto-detected from env vars if omitted)")
		model        = flag.String("model", "", "Model ID for model-backed resolvers")
		yes          = flag.Bool("yes", false, "Approve run-starting instructions without prompting")
		dryRun       = flag.Bool("dry-run", false, "Resolve the instruction and stop before executing")
		timeout      = flag.Duration("timeout", 0, "Bound on each resolver and orchestrator call")
		noCatalog    = flag.Bool("no-catalog", false, "Skip the DAG catalog listing before resolution")
		logLevel     = flag.String("log-level", "", "Log level: debug, info, warn, error")
	)
	flag.Parse()
	args := flag.Args()

	if *dryRun && len(args) == 0 {
		return fmt.Errorf("-dry-run needs an instruction")
	}

	// Handle OS signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	// Flags override file values.
	if *resolverFlag != "" {
		cfg.Resolver.Kind = *resolverFlag
	}
	if *model != "" {
		cfg.Resolver.Model = *model
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *yes {
		cfg.Confirm = config.ConfirmAuto
	}
	if *noCatalog {
		preload := false
		cfg.Catalog.Preload = &preload
	}

	// The console owns the terminal, so interactive runs drop log output;
	// the audit log still records executions.
	logger := slog.New(slog.DiscardHandler)
	if len(args) > 0 {
		logger, err = newLogger(cfg.Log)
		if err != nil {
			return err
		}
	}

	// Select resolver. Env vars are read here and passed as values.
	resolver, err := newResolver(ctx, cfg.Resolver,
		os.Getenv("OPENAI_API_KEY"), os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		return err
	}

	orchestrator := newOrchestrator(cfg.Airflow, logger)

	opts := []driver.Option{
		driver.WithLogger(logger.With("component", "driver")),
		driver.WithCatalogPreload(cfg.Catalog.PreloadEnabled()),
	}
	if *timeout > 0 {
		opts = append(opts, driver.WithTimeout(*timeout))
	}
	if cfg.Audit.Path != "" {
		auditLog, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer auditLog.Close()
		opts = append(opts, driver.WithAudit(auditLog))
	}

	theme := dagtalk.DefaultTheme()

	// One-shot mode: the positional args are the instruction.
	if len(args) > 0 {
		opts = append(opts, driver.WithGate(newGate(cfg.Confirm)))
		d := driver.New(orchestrator, resolver, opts...)
		return runOnce(ctx, d, dagtalk.Instruction(strings.Join(args, " ")), *dryRun, theme)
	}

	// Interactive console. The console prompts for trigger approval itself,
	// so the driver gate auto-approves.
	opts = append(opts, driver.WithGate(dagtalk.AutoApprove{}))
	d := driver.New(orchestrator, resolver, opts...)
	if err := bt.Run(ctx, bt.New(d.Resolve, d.Execute, theme)); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

// runOnce resolves and executes a single instruction. The result goes to
// stdout; the resolution explanation is commentary and goes to stderr.
func runOnce(ctx context.Context, d *driver.Driver, instruction dagtalk.Instruction, dryRun bool, theme dagtalk.Theme) error {
	if dryRun {
		res, err := d.Resolve(ctx, instruction)
		if res.Explanation != "" {
			fmt.Fprintln(os.Stderr, markdown.Render(res.Explanation, renderWidth, theme))
		}
		if err != nil {
			return err
		}
		fmt.Println("would run: " + intentLine(res.Intent))
		return nil
	}

	report, err := d.Run(ctx, instruction)
	if report.Explanation != "" {
		fmt.Fprintln(os.Stderr, markdown.Render(report.Explanation, renderWidth, theme))
	}
	// On an unknown trigger outcome the report still carries the partial
	// run and the re-query advice; print it even though err is set.
	if out := driver.Render(report, renderWidth); out != "" {
		fmt.Println(out)
	}
	return err
}

// intentLine is the one-line dry-run summary of a resolved intent.
func intentLine(intent dagtalk.Intent) string {
	parts := []string{intent.Name()}
	if target := intent.Target(); target != "" {
		parts = append(parts, string(target))
	}
	switch in := intent.(type) {
	case dagtalk.ListDagsIntent:
		if in.Pattern != "" {
			parts = append(parts, in.Pattern)
		}
	case dagtalk.TriggerDagIntent:
		keys := make([]string, 0, len(in.Conf))
		for k := range in.Conf {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k+"="+in.Conf[k])
		}
	case dagtalk.RunStatusIntent:
		parts = append(parts, in.RunID)
	}
	return strings.Join(parts, " ")
}

// loadConfig loads the config file. A missing file at the default location
// falls back to built-in defaults; an explicit -config path must exist.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	defaultPath := config.DefaultPath()
	if defaultPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(defaultPath)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func newOrchestrator(cfg config.AirflowConfig, logger *slog.Logger) *airflow.Client {
	opts := []airflow.Option{
		airflow.WithBaseURL(cfg.BaseURL),
		airflow.WithLogger(logger.With("component", "airflow")),
	}
	if cfg.Token != "" {
		opts = append(opts, airflow.WithToken(cfg.Token))
	} else {
		opts = append(opts, airflow.WithBasicAuth(cfg.Username, cfg.Password))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, airflow.WithTimeout(time.Duration(cfg.Timeout)))
	}
	if cfg.PageSize > 0 {
		opts = append(opts, airflow.WithPageSize(cfg.PageSize))
	}
	return airflow.New(opts...)
}

func newLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
	}
	return colorlog.New(os.Stderr, level), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
}
