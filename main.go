package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"moviemate/app/client/queryapi"
	"moviemate/app/config"
	"moviemate/app/server"
	"moviemate/app/server/mcptool"
	"moviemate/app/service/conversation"
	"moviemate/app/service/engine"
	"moviemate/app/service/queue"
	"moviemate/app/service/transcript"
	"moviemate/app/util/mylog"

	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// The terminal owns the screen, so chat logs go to a file unless one is configured.
const chatLogFile = "data/chat.log"

var configPath string

var rootCmd = &cobra.Command{
	Use:          "moviemate",
	Short:        "Movie Mate conversational front end",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve conversations over the HTTP JSON API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run("", func(ctx context.Context, di *do.Injector) error {
			srv := do.MustInvoke[*server.Server](di)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(srv.Listen)
			g.Go(func() error {
				<-gctx.Done()
				return srv.Stop()
			})

			return g.Wait()
		})
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(chatLogFile, func(ctx context.Context, di *do.Injector) error {
			return do.MustInvoke[*engine.Service](di).Run(ctx)
		})
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the ask_movie_mate tool over MCP stdio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run("", func(ctx context.Context, di *do.Injector) error {
			return do.MustInvoke[*mcptool.Server](di).Serve(ctx, os.Stdin, os.Stdout)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, chatCmd, mcpCmd)
}

func main() {
	mylog.Preinit()

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func run(logFile string, fn func(ctx context.Context, di *do.Injector) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	if cfg.Log.File == "" {
		cfg.Log.File = logFile
	}

	logCloser, err := mylog.Init(cfg)
	if err != nil {
		return fmt.Errorf("logging init failed: %w", err)
	}
	defer logCloser.Close()

	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	di := do.New()
	defer func() {
		if err := di.Shutdown(); err != nil {
			slog.Warn("Failed to shutdown services", "error", err)
		}
	}()

	do.ProvideValue(di, appCtx)
	do.ProvideValue(di, cfg)

	do.Provide(di, queryapi.NewClient)
	do.Provide(di, transcript.New)
	do.Provide(di, conversation.New)
	do.Provide(di, queue.New)
	do.Provide(di, engine.New)
	do.Provide(di, server.New)
	do.Provide(di, mcptool.New)

	slog.Info("Service started")
	defer slog.Info("Waiting for services to finish...")

	return fn(appCtx, di)
}
