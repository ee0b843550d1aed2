package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clickwatch-mcp-server/internal/browser"
	"clickwatch-mcp-server/internal/config"
	"clickwatch-mcp-server/internal/journal"
	mcpserver "clickwatch-mcp-server/internal/mcp"
	"clickwatch-mcp-server/internal/recorder"
	"clickwatch-mcp-server/internal/scheduler"

	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the ClickWatch MCP config file")
	ssePort := flag.Int("sse-port", 0, "Optional SSE port override (falls back to config)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Redirect logging to file for stdio mode (stderr interferes with MCP protocol)
	if cfg.MCP.SSEPort == 0 && *ssePort == 0 && cfg.Server.LogFile != "" {
		logFile, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			log.SetOutput(logFile)
			defer logFile.Close()
		} else {
			log.SetOutput(io.Discard)
		}
	}
	if *ssePort != 0 {
		cfg.MCP.SSEPort = *ssePort
	}

	engine, err := journal.NewEngine(cfg.Journal)
	if err != nil {
		log.Fatalf("failed to initialize journal engine: %v", err)
	}

	var rec *recorder.Recorder
	if cfg.Recorder.Enable {
		rec, err = recorder.NewRecorder(cfg.Recorder.Dir)
		if err != nil {
			log.Fatalf("failed to initialize recorder: %v", err)
		}
		if err := rec.Start(uuid.NewString()); err != nil {
			log.Fatalf("failed to start trace: %v", err)
		}
		defer rec.Close()
	}

	sessions := browser.NewSessionManager(cfg.Browser, cfg.Login, engine)
	defer func() {
		if err := sessions.Close(context.Background()); err != nil {
			log.Printf("session teardown: %v", err)
		}
	}()

	sched := scheduler.New(cfg.Automation, buildAttempt(cfg, sessions, engine), engine)
	go sched.Run(ctx)

	server, err := mcpserver.NewServer(cfg, sessions, sched, engine, rec)
	if err != nil {
		log.Fatalf("failed to initialize MCP server: %v", err)
	}

	var startErr error
	if cfg.MCP.SSEPort > 0 {
		log.Printf("starting ClickWatch MCP SSE server on port %d", cfg.MCP.SSEPort)
		startErr = server.StartSSE(ctx, cfg.MCP.SSEPort)
	} else {
		log.Printf("starting ClickWatch MCP stdio server")
		startErr = server.Start(ctx)
	}

	if startErr != nil && !errors.Is(startErr, context.Canceled) {
		log.Fatalf("server exited with error: %v", startErr)
	}
}

// buildAttempt produces the scheduled attempt: a full click attempt when a
// target is selected, a navigation-only probe otherwise.
func buildAttempt(cfg config.Config, sessions *browser.SessionManager, engine *journal.Engine) scheduler.AttemptFunc {
	return func(ctx context.Context, target browser.Target, waitTimeout time.Duration) browser.Result {
		url := cfg.Automation.TargetURL
		if url == "" {
			return browser.Result{Success: false, Message: "automation.target_url is not configured"}
		}

		if target.Selector == "" {
			page, release, err := sessions.AcquirePage(ctx)
			if err != nil {
				return browser.Result{Success: false, Message: err.Error()}
			}
			defer release()
			if err := page.Navigate(ctx, url); err != nil {
				return browser.Result{Success: false, Message: err.Error()}
			}
			return browser.Result{Success: true, Message: "no target selected; page probed"}
		}

		return browser.ClickWhenReady(ctx, sessions, url, target, browser.ClickOptions{
			WaitEnabled:  true,
			Timeout:      waitTimeout,
			PollInterval: cfg.Automation.GetPollInterval(),
		}, engine)
	}
}
