// Command pagecraft opens a page in a controlled browser and serves the
// customization engine over HTTP.
//
// Usage:
//
//	pagecraft -url https://example.com              # open a page, serve the API
//	pagecraft -url https://example.com -mcp         # also serve MCP on stdio
//	pagecraft -config pagecraft.yaml -url <url>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/pagecraft/advice"
	"github.com/hazyhaar/pagecraft/api"
	"github.com/hazyhaar/pagecraft/bridge"
	"github.com/hazyhaar/pagecraft/engine"
	"github.com/hazyhaar/pagecraft/templates"
)

func main() {
	pageURL := flag.String("url", "", "page to open and customize")
	configPath := flag.String("config", "", "path to pagecraft.yaml config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	mcpStdio := flag.Bool("mcp", false, "serve MCP tools on stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *pageURL, *addr, *mcpStdio); err != nil {
		logger.Error("pagecraft: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, pageURL, addr string, mcpStdio bool) error {
	if pageURL == "" {
		fmt.Fprintln(os.Stderr, "usage: pagecraft -url <url> [-config <file>] [-addr <addr>] [-mcp]")
		os.Exit(1)
	}

	cfg := engine.LoadDefaults()
	if configPath != "" {
		loaded, err := engine.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if addr != "" {
		cfg.Listen = addr
	}

	// Browser.
	mgr := bridge.NewManager(bridge.Config{
		RemoteURL: cfg.Browser.Remote,
		Headful:   cfg.Browser.Headful,
		Stealth:   cfg.Browser.Stealth,
		Logger:    logger,
	})
	if err := mgr.Start(); err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	defer mgr.Close()

	tab, err := bridge.OpenTab(ctx, mgr, pageURL)
	if err != nil {
		return fmt.Errorf("open %s: %w", pageURL, err)
	}
	defer tab.Close()

	// Template store.
	var storeOpts []templates.Option
	if cfg.TemplateGlob {
		storeOpts = append(storeOpts, templates.WithMatcher(templates.NewGlobMatcher()))
	}
	store, err := templates.Open(cfg.TemplateDB, storeOpts...)
	if err != nil {
		return err
	}
	defer store.Close()

	// Engine.
	eng, err := engine.New(tab, store, logger)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer eng.Close()
	tab.OnNavigate(ctx, eng.HandleNavigation)

	// Optional advice collaborator.
	var advisor *advice.Advisor
	advisor, err = advice.New(advice.Config{
		APIKey:  cfg.Advice.APIKey,
		Model:   cfg.Advice.Model,
		BaseURL: cfg.Advice.BaseURL,
		Logger:  logger,
	})
	if errors.Is(err, advice.ErrNotConfigured) {
		logger.Info("pagecraft: advice service disabled (no API key)")
		advisor = nil
	} else if err != nil {
		return err
	}

	// MCP on stdio, when asked.
	if mcpStdio {
		srv := mcp.NewServer(&mcp.Implementation{Name: "pagecraft", Version: "0.1.0"}, nil)
		eng.RegisterMCP(srv)
		go func() {
			if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
				logger.Error("pagecraft: mcp server", "error", err)
			}
		}()
	}

	// HTTP API.
	httpSrv := &http.Server{
		Addr:    cfg.Listen,
		Handler: api.NewServer(eng, advisor, logger).Router(),
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("pagecraft: listening", "addr", cfg.Listen, "url", pageURL)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
