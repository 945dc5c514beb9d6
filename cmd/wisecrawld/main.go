// Entry point for the wisecrawl HTTP service: chi router, SQLite store, optional MCP stdio.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/natefinch/lumberjack.v2"
	_ "modernc.org/sqlite"

	"github.com/wisecart/wisecrawl/crawl"
	"github.com/wisecart/wisecrawl/dbopen"
)

func main() {
	port := env("PORT", "8086")
	configPath := env("CONFIG_FILE", "")
	logLevel := env("LOG_LEVEL", "info")
	logFile := env("LOG_FILE", "")
	mcpTransport := env("MCP_TRANSPORT", "")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	var logOut io.Writer = os.Stdout
	if logFile != "" {
		logOut = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    15, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Config.
	cfg := &crawl.Config{}
	if configPath != "" {
		loaded, err := crawl.LoadConfigFile(configPath)
		if err != nil {
			slog.Error("load config", "path", configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "db/wisecrawl.db"
	}

	// Store DB.
	db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("open db", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Service.
	svc, err := crawl.New(db, cfg, logger)
	if err != nil {
		slog.Error("crawl service", "error", err)
		os.Exit(1)
	}

	// Optional MCP stdio transport. The process then serves MCP on stdio
	// and HTTP on the port at the same time.
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "wisecrawl",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)
		go func() {
			slog.Info("MCP stdio starting")
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("MCP stdio", "error", err)
			}
		}()
	}

	// Router.
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Get("/api/sites", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, svc.Sites())
	})

	r.Get("/api/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		identity := r.URL.Query().Get("identity")
		hits, err := svc.RunSearch(r.Context(), q, identity)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, 200, hits)
	})

	r.Get("/api/products", func(w http.ResponseWriter, r *http.Request) {
		site := r.URL.Query().Get("site")
		url := r.URL.Query().Get("url")
		p, err := svc.GetOrRefreshDetail(r.Context(), site, url)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, 200, p)
	})

	r.Get("/api/trending", func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 8)
		days := queryInt(r, "days", 7)
		out, err := svc.TrendingSearches(r.Context(), time.Duration(days)*24*time.Hour, limit)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, out)
	})

	r.Get("/api/sites/{siteID}/fetches", func(w http.ResponseWriter, r *http.Request) {
		siteID := chi.URLParam(r, "siteID")
		limit := queryInt(r, "limit", 50)
		out, err := svc.FetchHistory(r.Context(), siteID, limit)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, out)
	})

	// HTTP server.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
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

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, crawl.ErrInvalidInput):
		return 400
	case errors.Is(err, crawl.ErrUnknownSite), errors.Is(err, crawl.ErrNotFound):
		return 404
	default:
		return 500
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
