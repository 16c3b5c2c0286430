package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/humanand/humanand/pkg/classifier"
	"github.com/humanand/humanand/pkg/config"
	"github.com/humanand/humanand/pkg/handlers"
	"github.com/humanand/humanand/pkg/llm"
	"github.com/humanand/humanand/pkg/logging"
	"github.com/humanand/humanand/pkg/mcp"
	"github.com/humanand/humanand/pkg/mcp/tools"
	"github.com/humanand/humanand/pkg/middleware"
	"github.com/humanand/humanand/pkg/pending"
	"github.com/humanand/humanand/pkg/projects"
	"github.com/humanand/humanand/pkg/repositories"
	"github.com/humanand/humanand/pkg/services"
	"github.com/humanand/humanand/pkg/slack"
	"github.com/humanand/humanand/pkg/vcs"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Slack and run the approval workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}

			logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, logger)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting humanand",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("data_dir", cfg.DataDir),
		zap.String("event_log", cfg.EventLog.Backend),
		zap.String("llm_provider", cfg.LLM.Provider))

	events, err := repositories.OpenEventRepository(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer events.Close()

	knowledgeRepo := repositories.NewKnowledgeRepository(cfg.DataDir)
	cache := projects.NewCache(knowledgeRepo, logger)

	var committer services.Committer
	if cfg.GitCommit {
		committer = vcs.NewGitCommitter(cfg.DataDir, logger)
	}
	knowledge := services.NewKnowledgeWriter(knowledgeRepo, committer, cache, logger)

	llmClient, err := llm.NewClientFromConfig(ctx, cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	cls := classifier.New(llmClient, cfg.LLM.Temperature, logger)

	registry := pending.NewRegistry(logger)

	web := slack.NewWebClient(cfg.Slack, logger)
	botID, err := web.BotUserID(ctx)
	if err != nil {
		return fmt.Errorf("failed to identify bot user: %w", err)
	}
	logger.Info("Authenticated with Slack", zap.String("bot_user_id", botID))

	people := services.NewPeopleService(knowledgeRepo, events, registry, logger)
	workflow := services.NewWorkflowService(web, cls, registry, events, knowledge, people, services.WorkflowOptions{
		HistoryLimit:     cfg.Slack.HistoryLimit,
		ConfirmApprovals: cfg.Workflow.ConfirmApprovals,
		ReportFailures:   cfg.Workflow.ReportFailures,
	}, logger)

	socket := slack.NewSocketClient(web, workflow, logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return socket.Start(ctx)
	})

	if cfg.Pending.TTL > 0 {
		g.Go(func() error {
			return registry.StartJanitor(ctx, cfg.Pending.TTL, cfg.Pending.SweepInterval)
		})
	}

	if cfg.Workflow.WatchKnowledge {
		watcher := projects.NewWatcher(cfg.DataDir, cache, logger)
		g.Go(func() error {
			return watcher.Run(ctx)
		})
	}

	if cfg.GitHub.Enabled() {
		monitor, err := services.NewPRMonitor(cfg.GitHub, web, cache, logger)
		if err != nil {
			return fmt.Errorf("failed to create PR monitor: %w", err)
		}
		g.Go(func() error {
			return monitor.Start(ctx)
		})
	}

	if cfg.HTTP.Addr != "" {
		handler := newHTTPHandler(cfg, socket, registry, knowledgeRepo, events, people, logger)
		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			logger.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("humanand stopped")
	return err
}

// newHTTPHandler mounts the health endpoints and the read-only MCP API.
func newHTTPHandler(
	cfg *config.Config,
	chat handlers.ConnectionReporter,
	registry *pending.Registry,
	knowledge repositories.KnowledgeRepository,
	events repositories.EventRepository,
	people services.PeopleService,
	logger *zap.Logger,
) http.Handler {
	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, chat, registry, logger).RegisterRoutes(mux)

	mcpServer := mcp.NewServer("humanand", cfg.Version, logger)
	tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version, registry)
	tools.RegisterKnowledgeTools(mcpServer.MCP(), &tools.KnowledgeToolDeps{
		Knowledge: knowledge,
		Events:    events,
		Logger:    logger,
	})
	tools.RegisterPeopleTool(mcpServer.MCP(), people, logger)
	handlers.NewMCPHandler(mcpServer, logger.Named("mcp")).RegisterRoutes(mux)

	return middleware.RequestLogger(logger.Named("http"))(mux)
}
