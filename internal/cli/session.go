package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/budgetsync/internal/api"
	"github.com/roach88/budgetsync/internal/budget"
	"github.com/roach88/budgetsync/internal/cloud"
	"github.com/roach88/budgetsync/internal/config"
	"github.com/roach88/budgetsync/internal/connection"
	"github.com/roach88/budgetsync/internal/metrics"
	"github.com/roach88/budgetsync/internal/sheet"
)

// session is one command's view of the data directory: the loaded config,
// a server over the budget manager, and the CLI's own connection.
type session struct {
	cfg      config.Config
	logger   *slog.Logger
	srv      *api.Server
	conn     *connection.ChannelConn
	out      *OutputFormatter
	registry *prometheus.Registry

	// dumpMetrics writes the registry to stderr on close.
	dumpMetrics bool
}

// openSession loads configuration, builds the server and opens the budget
// named by --budget. With needBudget set a missing --budget is an error.
func openSession(cmd *cobra.Command, opts *RootOptions, needBudget bool) (*session, error) {
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	if needBudget && opts.Budget == "" {
		return nil, NewExitError(ExitCommandError, "--budget is required")
	}

	overrides := map[string]any{}
	if opts.DataDir != "" {
		overrides["data_dir"] = opts.DataDir
	}
	if opts.Verbose {
		overrides["log.level"] = "debug"
	}
	cfg, err := config.NewLoader(
		config.WithConfigFile(opts.ConfigPath),
		config.WithOverrides(overrides),
	).Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log)
	slog.SetDefault(logger)

	uploader, err := newUploader(ctx, cfg.Upload)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to configure upload", err)
	}

	budgets := budget.NewManager(cfg.DataDir,
		budget.WithLogger(logger),
		budget.WithUploader(uploader),
		budget.WithSheetOptions(sheet.WithTTL(cfg.Sheet.CacheTTL)),
	)
	hub := connection.NewHub(
		connection.WithSendTimeout(cfg.Broadcast.SendTimeout),
		connection.WithLogger(logger),
	)
	conn := connection.NewChannelConn("cli", cfg.Broadcast.Buffer)
	hub.Connect(conn)

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to register metrics", err)
	}

	s := &session{
		cfg:         cfg,
		logger:      logger,
		srv:         api.NewServer(budgets, hub, api.WithLogger(logger), api.WithMetrics(m)),
		conn:        conn,
		out:         out,
		registry:    registry,
		dumpMetrics: opts.Metrics,
	}
	logger.Debug("session opened", "data_dir", cfg.DataDir, "upload", cfg.Upload.Enabled)

	if opts.Budget != "" {
		if err := s.srv.LoadBudget(ctx, opts.Budget); err != nil {
			s.close(ctx)
			return nil, WrapExitError(ExitCommandError, "failed to open budget "+opts.Budget, err)
		}
	}
	return s, nil
}

// close reports the events the session's connection received, shuts the
// server down and, with --metrics, writes the collected metrics to stderr.
func (s *session) close(ctx context.Context) {
	for _, ev := range s.conn.Drain() {
		s.out.VerboseLog("event: %s %v", ev.Name, ev.Payload)
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("error closing budget", "error", err)
	}
	if s.dumpMetrics {
		if err := metrics.WriteText(s.out.GetErrWriter(), s.registry); err != nil {
			s.logger.Error("error writing metrics", "error", err)
		}
	}
}

// report prints err in the configured format and returns it as an
// ExitError. Refused and failed operations exit with ExitFailure.
func (s *session) report(err error) error {
	return report(s.out, err)
}

func report(out *OutputFormatter, err error) error {
	if err == nil {
		return nil
	}
	_ = out.Error(ErrorCode(err), err.Error(), nil)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return WrapExitError(ExitFailure, "operation failed", err)
}

func newLogger(w io.Writer, cfg config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func newUploader(ctx context.Context, cfg config.Upload) (cloud.Uploader, error) {
	if !cfg.Enabled {
		return cloud.NopUploader{}, nil
	}
	return cloud.NewS3Uploader(ctx, cloud.S3Config{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		PathStyle: cfg.PathStyle,
		Prefix:    cfg.Prefix,
	})
}

// commandContext returns the command's context, or Background when the
// command was run without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
