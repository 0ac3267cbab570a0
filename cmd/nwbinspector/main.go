package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/checkconfig"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/checks"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/config"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/inspector"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/logging"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/progress"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/registry"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/reporter"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/sink"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/version"
)

const defaultThreshold = "BEST_PRACTICE_SUGGESTION"

var defaultLevels = []string{reporter.LevelImportance, reporter.LevelFilePath}

func main() {
	logging.Init(false)

	err := newRootCmd().Execute()
	if err == nil {
		return
	}
	var findings *FindingsError
	if !errors.As(err, &findings) {
		slog.Error("command failed", "error", err)
		_, _ = fmt.Fprintf(os.Stderr, "Tip: Use 'nwbinspector --help' for usage information.\n")
	}
	os.Exit(classifyError(err))
}

type selectionOptions struct {
	config    string
	ignore    []string
	selected  []string
	threshold string
}

type kafkaOptions struct {
	brokers       string
	topic         string
	authMechanism string
	username      string
	password      string
	tlsEnabled    bool
	tlsCert       string
	tlsKey        string
	tlsCA         string
	timeout       time.Duration
}

type inspectOptions struct {
	selectionOptions
	kafka          kafkaOptions
	levels         []string
	reverse        []bool
	overwrite      bool
	reportFilePath string
	jsonFilePath   string
	nJobs          int
	skipValidate   bool
	detailed       bool
	progressBar    bool
	output         string
	failOn         string
}

type checksOptions struct {
	selectionOptions
	output string
}

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "nwbinspector",
		Short:         "Inspect NWB files for compliance with best practices",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newChecksCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "version: %s\ncommit:  %s\ndate:    %s\n",
				version.Version, version.Commit, version.BuildDate)
			return err
		},
	}
}

func addSelectionFlags(cmd *cobra.Command, opts *selectionOptions) {
	flags := cmd.Flags()
	flags.StringVar(&opts.config, "config", "", "Check configuration: a built-in name (dandi) or a .yaml/.json/.toml file")
	flags.StringSliceVar(&opts.ignore, "ignore", nil, "Check names to skip (comma-separated)")
	flags.StringSliceVar(&opts.selected, "select", nil, "Check names to run exclusively (comma-separated)")
	flags.StringVar(&opts.threshold, "threshold", defaultThreshold, "Lowest importance to run (BEST_PRACTICE_SUGGESTION, BEST_PRACTICE_VIOLATION, CRITICAL)")
}

func newInspectCmd() *cobra.Command {
	var opts inspectOptions

	cmd := &cobra.Command{
		Use:   "inspect PATH...",
		Short: "Inspect NWB files or directories of NWB files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveInspectOptions(cmd, opts)
			if err != nil {
				return err
			}
			return runInspect(cmd, args, resolved)
		},
	}

	addSelectionFlags(cmd, &opts.selectionOptions)

	flags := cmd.Flags()
	flags.StringSliceVar(&opts.levels, "levels", defaultLevels, "Message attributes to organize the report by (comma-separated)")
	flags.BoolSliceVar(&opts.reverse, "reverse", nil, "Reverse the order of each level (comma-separated booleans)")
	flags.BoolVar(&opts.overwrite, "overwrite", false, "Overwrite existing report files")
	flags.StringVar(&opts.reportFilePath, "report-file-path", "", "Save the text report to this file")
	flags.StringVar(&opts.jsonFilePath, "json-file-path", "", "Save the messages as JSON to this file")
	flags.IntVar(&opts.nJobs, "n-jobs", 1, "Files inspected in parallel; -1 uses every CPU, negative values leave that many CPUs free")
	flags.BoolVar(&opts.skipValidate, "skip-validate", false, "Skip schema validation")
	flags.BoolVar(&opts.detailed, "detailed", false, "List every file separately instead of collapsing repeated messages")
	flags.BoolVar(&opts.progressBar, "progress-bar", false, "Show progress on stderr when it is a terminal")
	flags.StringVar(&opts.output, "output", "text", "Output format (text|json|sarif)")
	flags.StringVar(&opts.failOn, "fail-on", "", "Exit with code 1 when a message at or above this importance is found")

	flags.StringVar(&opts.kafka.brokers, "kafka-brokers", "", "Kafka bootstrap server(s) to publish messages to (host:port, comma-separated)")
	flags.StringVar(&opts.kafka.topic, "kafka-topic", "", "Kafka topic to publish messages to")
	flags.StringVar(&opts.kafka.authMechanism, "auth-mechanism", "", "SASL mechanism (PLAIN, SCRAM-SHA-256, SCRAM-SHA-512)")
	flags.StringVar(&opts.kafka.username, "username", "", "SASL username")
	flags.StringVar(&opts.kafka.password, "password", "", "SASL password")
	flags.BoolVar(&opts.kafka.tlsEnabled, "tls", false, "Enable TLS")
	flags.StringVar(&opts.kafka.tlsCert, "tls-cert", "", "Path to TLS client certificate")
	flags.StringVar(&opts.kafka.tlsKey, "tls-key", "", "Path to TLS client private key")
	flags.StringVar(&opts.kafka.tlsCA, "tls-ca", "", "Path to TLS CA certificate")
	flags.DurationVar(&opts.kafka.timeout, "timeout", 0, "Kafka request timeout (for example: 10s, 1m)")

	return cmd
}

func newChecksCmd() *cobra.Command {
	var opts checksOptions

	cmd := &cobra.Command{
		Use:   "checks",
		Short: "List the registered checks after configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveChecksOptions(cmd, opts)
			if err != nil {
				return err
			}
			return runChecks(cmd, resolved)
		},
	}

	addSelectionFlags(cmd, &opts.selectionOptions)
	cmd.Flags().StringVar(&opts.output, "output", "text", "Output format (text|json)")

	return cmd
}

func loadDefaults() (*config.Config, error) {
	cfg, cfgPath, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		slog.Debug("loaded defaults from config", "path", cfgPath)
	}
	return cfg, nil
}

func resolveInspectOptions(cmd *cobra.Command, opts inspectOptions) (inspectOptions, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return opts, err
	}
	if cfg != nil {
		opts = applyInspectConfigDefaults(cmd, opts, cfg)
	}
	return opts, nil
}

func resolveChecksOptions(cmd *cobra.Command, opts checksOptions) (checksOptions, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return opts, err
	}
	if cfg != nil {
		opts.selectionOptions = applySelectionDefaults(cmd, opts.selectionOptions, cfg)
	}
	return opts, nil
}

func applySelectionDefaults(cmd *cobra.Command, opts selectionOptions, cfg *config.Config) selectionOptions {
	if !flagChanged(cmd, "config") && cfg.CheckConfig != "" {
		opts.config = cfg.CheckConfig
	}
	if !flagChanged(cmd, "ignore") && len(cfg.Ignore) > 0 {
		opts.ignore = append([]string(nil), cfg.Ignore...)
	}
	if !flagChanged(cmd, "select") && len(cfg.Select) > 0 {
		opts.selected = append([]string(nil), cfg.Select...)
	}
	if !flagChanged(cmd, "threshold") && cfg.Threshold != "" {
		opts.threshold = cfg.Threshold
	}
	return opts
}

func applyInspectConfigDefaults(cmd *cobra.Command, opts inspectOptions, cfg *config.Config) inspectOptions {
	opts.selectionOptions = applySelectionDefaults(cmd, opts.selectionOptions, cfg)

	if !flagChanged(cmd, "levels") && len(cfg.Levels) > 0 {
		opts.levels = append([]string(nil), cfg.Levels...)
	}
	if !flagChanged(cmd, "reverse") && len(cfg.Reverse) > 0 {
		opts.reverse = append([]bool(nil), cfg.Reverse...)
	}
	if !flagChanged(cmd, "output") && cfg.Output != "" {
		opts.output = cfg.Output
	}
	if !flagChanged(cmd, "fail-on") && cfg.FailOn != "" {
		opts.failOn = cfg.FailOn
	}
	if !flagChanged(cmd, "n-jobs") && cfg.NJobs != nil {
		opts.nJobs = *cfg.NJobs
	}
	if !flagChanged(cmd, "skip-validate") && cfg.SkipValidate != nil {
		opts.skipValidate = *cfg.SkipValidate
	}
	if !flagChanged(cmd, "detailed") && cfg.Detailed != nil {
		opts.detailed = *cfg.Detailed
	}
	if !flagChanged(cmd, "progress-bar") && cfg.ProgressBar != nil {
		opts.progressBar = *cfg.ProgressBar
	}
	if !flagChanged(cmd, "kafka-brokers") && strings.TrimSpace(cfg.KafkaBrokers) != "" {
		opts.kafka.brokers = cfg.KafkaBrokers
	}
	if !flagChanged(cmd, "kafka-topic") && strings.TrimSpace(cfg.KafkaTopic) != "" {
		opts.kafka.topic = cfg.KafkaTopic
	}
	if !flagChanged(cmd, "auth-mechanism") && strings.TrimSpace(cfg.AuthMech) != "" {
		opts.kafka.authMechanism = cfg.AuthMech
	}
	if !flagChanged(cmd, "timeout") && cfg.Timeout > 0 {
		opts.kafka.timeout = cfg.Timeout
	}
	return opts
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil {
		return false
	}
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		return false
	}
	return flag.Changed
}

// configureChecks loads the check configuration and filters the built-in registry.
func configureChecks(opts selectionOptions) ([]registry.Check, error) {
	threshold := strings.TrimSpace(opts.threshold)
	if threshold == "" {
		threshold = defaultThreshold
	}
	imp, err := checkconfig.ParseImportanceThreshold(threshold)
	if err != nil {
		return nil, err
	}

	configureOpts := checkconfig.Options{
		Ignore:              opts.ignore,
		Select:              opts.selected,
		ImportanceThreshold: imp,
	}
	if opts.config != "" {
		cfg, err := checkconfig.Load(opts.config)
		if err != nil {
			return nil, err
		}
		configureOpts.Config = &cfg
	}

	return checkconfig.Configure(checks.NewRegistry().Checks(), configureOpts)
}

func (k kafkaOptions) validate() error {
	if strings.TrimSpace(k.brokers) == "" {
		return nil
	}
	if strings.TrimSpace(k.topic) == "" {
		return errors.New("kafka-topic is required when --kafka-brokers is set")
	}
	if k.authMechanism != "" && (k.username == "" || k.password == "") {
		return errors.New("auth-mechanism requires both --username and --password")
	}
	if (k.tlsCert == "") != (k.tlsKey == "") {
		return errors.New("--tls-cert and --tls-key must be provided together")
	}
	if k.timeout < 0 {
		return errors.New("timeout must be greater than zero")
	}
	return nil
}

func (k kafkaOptions) sinkConfig() sink.Config {
	return sink.Config{
		BootstrapServers: k.brokers,
		Topic:            k.topic,
		AuthMechanism:    k.authMechanism,
		Username:         k.username,
		Password:         k.password,
		TLSEnabled:       k.tlsEnabled,
		TLSCertFile:      k.tlsCert,
		TLSKeyFile:       k.tlsKey,
		TLSCAFile:        k.tlsCA,
		Timeout:          k.timeout,
	}
}

func normalizeOutput(output string, allowed ...string) (string, error) {
	output = strings.ToLower(strings.TrimSpace(output))
	if output == "" {
		output = "text"
	}
	for _, a := range allowed {
		if output == a {
			return output, nil
		}
	}
	return "", fmt.Errorf("invalid output format %q (expected %s)", output, strings.Join(allowed, ", "))
}

// checkReportTarget fails early instead of after a long inspection.
func checkReportTarget(path string, overwrite bool) error {
	if path == "" || overwrite {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s (use --overwrite)", reporter.ErrReportExists, path)
	}
	return nil
}

func runInspect(cmd *cobra.Command, paths []string, opts inspectOptions) error {
	start := time.Now()

	output, err := normalizeOutput(opts.output, "text", "json", "sarif")
	if err != nil {
		return err
	}
	var failOn *message.Importance
	if strings.TrimSpace(opts.failOn) != "" {
		imp, err := message.ParseImportance(strings.TrimSpace(opts.failOn))
		if err != nil {
			return fmt.Errorf("invalid --fail-on: %w", err)
		}
		failOn = &imp
	}
	if len(opts.levels) == 0 {
		opts.levels = defaultLevels
	}
	if _, err := reporter.Organize(nil, opts.levels, opts.reverse); err != nil {
		return err
	}
	workers, err := inspector.ResolveWorkers(opts.nJobs)
	if err != nil {
		return err
	}
	if err := opts.kafka.validate(); err != nil {
		return err
	}
	for _, path := range []string{opts.reportFilePath, opts.jsonFilePath} {
		if err := checkReportTarget(path, opts.overwrite); err != nil {
			return err
		}
	}

	checkList, err := configureChecks(opts.selectionOptions)
	if err != nil {
		return err
	}

	insp, err := inspector.New(checkList,
		inspector.WithSkipValidation(opts.skipValidate),
		inspector.WithWorkers(workers),
		inspector.WithProgress(progress.ForTerminal(os.Stderr, opts.progressBar)),
	)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	messages, err := insp.InspectAll(ctx, paths)
	if err != nil {
		return err
	}

	now := time.Now()
	header := reporter.NewHeader(now)
	formatOpts := reporter.FormatOptions{
		Levels:   opts.levels,
		Reverse:  opts.reverse,
		Detailed: opts.detailed,
		Now:      func() time.Time { return now },
	}

	out := cmd.OutOrStdout()
	switch output {
	case "json":
		err = reporter.WriteJSON(out, messages, header, true)
	case "sarif":
		err = reporter.NewSARIFReporter(out, true).Generate(ctx, messages)
	default:
		textOpts := formatOpts
		textOpts.Color = useColor(out)
		err = reporter.NewTextReporter(out, textOpts).Generate(ctx, messages)
	}
	if err != nil {
		return err
	}

	if opts.reportFilePath != "" {
		lines, err := reporter.FormatMessages(messages, formatOpts)
		if err != nil {
			return err
		}
		if err := reporter.SaveReport(opts.reportFilePath, lines, opts.overwrite); err != nil {
			return err
		}
		slog.Info("saved report", "path", opts.reportFilePath)
	}
	if opts.jsonFilePath != "" {
		if err := reporter.SaveJSONReport(opts.jsonFilePath, messages, header, opts.overwrite); err != nil {
			return err
		}
		slog.Info("saved json report", "path", opts.jsonFilePath)
	}

	if strings.TrimSpace(opts.kafka.brokers) != "" {
		if err := publish(ctx, opts.kafka.sinkConfig(), header, messages); err != nil {
			return err
		}
	}

	slog.Info("inspect completed", "checks", len(checkList), "messages", len(messages), "duration", time.Since(start))

	if failOn != nil {
		if count := countAtLeast(messages, *failOn); count > 0 {
			return &FindingsError{Count: count}
		}
	}
	return nil
}

func publish(ctx context.Context, cfg sink.Config, header reporter.Header, messages []message.Message) error {
	publisher, err := sink.NewPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()
	return publisher.Publish(ctx, header, messages)
}

func countAtLeast(messages []message.Message, threshold message.Importance) int {
	count := 0
	for _, m := range messages {
		if m.Importance >= threshold {
			count++
		}
	}
	return count
}

func useColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && f == os.Stdout && !color.NoColor
}

func runChecks(cmd *cobra.Command, opts checksOptions) error {
	output, err := normalizeOutput(opts.output, "text", "json")
	if err != nil {
		return err
	}

	checkList, err := configureChecks(opts.selectionOptions)
	if err != nil {
		return err
	}
	catalog := reporter.NewCheckCatalog(checkList)

	var catalogReporter reporter.CatalogReporter
	switch output {
	case "json":
		catalogReporter = reporter.NewCatalogJSONReporter(cmd.OutOrStdout(), true)
	default:
		catalogReporter = reporter.NewCatalogTextReporter(cmd.OutOrStdout())
	}
	return catalogReporter.GenerateCatalog(cmd.Context(), catalog)
}
