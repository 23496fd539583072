// Entry point for the OCR HTTP service. Wires config, logging, the request
// journal, the Tesseract engine and the processing pipeline into a chi
// server, with an optional MCP stdio transport.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/ocrpipe/api"
	"github.com/hazyhaar/ocrpipe/dbopen"
	"github.com/hazyhaar/ocrpipe/journal"
	"github.com/hazyhaar/ocrpipe/pipeline"
	"github.com/hazyhaar/ocrpipe/recognize/tesseract"
	"github.com/hazyhaar/ocrpipe/validate"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg := api.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = api.LoadConfig(*configPath)
		if err != nil {
			slog.Error("load config", "error", err)
			os.Exit(1)
		}
	}
	if listen := env("LISTEN", ""); listen != "" {
		cfg.Listen = listen
	}
	mcpTransport := env("MCP_TRANSPORT", "")

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Request journal.
	db, err := dbopen.Open(cfg.JournalDB, dbopen.WithMkdirAll(), dbopen.WithSchema(journal.Schema))
	if err != nil {
		slog.Error("open journal db", "path", cfg.JournalDB, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	jrnl := journal.NewStore(db)
	defer jrnl.Close()

	// Pipeline.
	engine := tesseract.New(
		tesseract.WithLanguages(cfg.TessLanguages...),
		tesseract.WithDPI(cfg.RasterDPI),
	)
	pipe := pipeline.New(engine, pipeline.Config{
		Limits: validate.Limits{
			MaxFileSize: cfg.MaxFileBytes(),
			MaxPDFPages: cfg.MaxPDFPages,
		},
		DPI:               cfg.RasterDPI,
		PageTimeout:       cfg.PageTimeout(),
		Parallelism:       cfg.Parallelism,
		TopK:              cfg.TopLanguages,
		MinTextLen:        cfg.MinDetectChars,
		PDFTextConfidence: cfg.PDFTextConfidence,
		Logger:            logger,
	})

	// MCP stdio mode replaces the HTTP server entirely.
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "ocrpipe",
			Version: "1.0.0",
		}, nil)
		pipe.RegisterMCP(mcpSrv)
		slog.Info("mcp server starting", "transport", "stdio")
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			slog.Error("mcp server", "error", err)
			os.Exit(1)
		}
		return
	}

	server := api.NewServer(pipe, jrnl, cfg.MaxFileBytes(), logger)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "listen", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
