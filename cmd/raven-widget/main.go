package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wolfman30/raven-widget/internal/app/bootstrap"
	appconfig "github.com/wolfman30/raven-widget/internal/config"
	"github.com/wolfman30/raven-widget/internal/tui"
	"github.com/wolfman30/raven-widget/pkg/logging"
)

var (
	envFile string
	plain   bool
)

var rootCmd = &cobra.Command{
	Use:   "raven-widget",
	Short: "Terminal chat widget for Raven businesses",
	Long: "raven-widget mounts the Raven chat widget for the business named in RAVEN_CONFIG\n" +
		"(or RAVEN_BUSINESS_ID and RAVEN_API_URL) and runs it in the terminal.",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.Flags().BoolVar(&plain, "plain", false, "use the line-oriented console instead of the full-screen UI")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	if err := validateConfig(cfg, os.Stderr); err != nil {
		return err
	}

	logOut, closeLog, err := openLogOutput(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: logOut})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, metricsHandler := setupMetrics()
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, metricsHandler, logger)
		defer shutdownMetrics(srv, logger)
	}

	w, err := bootstrap.BuildWidget(ctx, cfg, logger, reg)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if plain || !isatty.IsTerminal(os.Stdin.Fd()) || !isatty.IsTerminal(os.Stdout.Fd()) {
		return tui.RunConsole(ctx, w.Controller, os.Stdin, os.Stdout)
	}

	program := tea.NewProgram(tui.NewModel(ctx, w.Controller), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// validateConfig reports an unusable host config on w before the widget
// logger exists, since the widget is never mounted in that case.
func validateConfig(cfg *appconfig.Config, w io.Writer) error {
	if err := cfg.Validate(); err != nil {
		logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: w})
		logger.Error("widget not mounted: invalid host config", "error", err)
		return err
	}
	return nil
}

// openLogOutput keeps log records off stdout, which belongs to the UI.
func openLogOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
