// CLAUDE:SUMMARY CLI entry point for sintesis: run a date's extraction, list stored rows, or serve MCP over stdio.
// Command sintesis extracts articles and page images from the daily press
// digest PDF into SQLite.
//
// Usage:
//
//	sintesis -config sintesis.yaml                  # extract today's digest
//	sintesis -config sintesis.yaml -date 2025-06-05 # extract one date
//	sintesis -db sintesis.db -pdf digest.pdf -date 2025-06-05
//	sintesis -db sintesis.db -articles -date 2025-06-05 [-section scjn]
//	sintesis -db sintesis.db -images -date 2025-06-05
//	sintesis -db sintesis.db -runs -date 2025-06-05
//	sintesis -config sintesis.yaml -mcp             # MCP server on stdio
//	sintesis -config sintesis.yaml -watch           # extract today's PDF when it lands
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/sintesis"
)

type options struct {
	configPath string
	dbPath     string
	date       string
	pdfPath    string
	section    string
	limit      int
	articles   bool
	images     bool
	runs       bool
	serveMCP   bool
	watch      bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to sintesis.yaml config file")
	flag.StringVar(&o.dbPath, "db", "", "path to SQLite database (overrides config)")
	flag.StringVar(&o.date, "date", "", "publication date YYYY-MM-DD (default today)")
	flag.StringVar(&o.pdfPath, "pdf", "", "explicit PDF path instead of pdf_dir/pdf_pattern")
	flag.StringVar(&o.section, "section", "", "restrict -articles/-images to one section id")
	flag.IntVar(&o.limit, "limit", 0, "max rows for -articles/-images/-runs")
	flag.BoolVar(&o.articles, "articles", false, "list stored articles and exit")
	flag.BoolVar(&o.images, "images", false, "list stored images and exit")
	flag.BoolVar(&o.runs, "runs", false, "list extraction runs and exit")
	flag.BoolVar(&o.serveMCP, "mcp", false, "serve MCP tools over stdio")
	flag.BoolVar(&o.watch, "watch", false, "daemon: extract today's PDF whenever it appears or changes")
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

	if err := run(ctx, logger, o); err != nil {
		logger.Error("sintesis: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg, err := resolveConfig(o.configPath, o.dbPath)
	if err != nil {
		return err
	}

	svc, err := sintesis.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer svc.Close()

	date := o.date
	if date == "" {
		date = svc.Today()
	}
	filter := sintesis.Filter{Date: date, SectionID: o.section, Limit: o.limit}

	switch {
	case o.serveMCP:
		srv := mcp.NewServer(&mcp.Implementation{Name: "sintesis", Version: "1.0.0"}, nil)
		svc.RegisterMCP(srv)
		logger.Info("sintesis: MCP on stdio", "db", cfg.DBPath)
		return srv.Run(ctx, &mcp.StdioTransport{})

	case o.watch:
		logger.Info("sintesis: watching", "pdf_dir", cfg.PDFDir, "pattern", cfg.PDFPattern)
		svc.Watch(ctx)
		logger.Info("sintesis: shutting down")
		return nil

	case o.articles:
		arts, err := svc.Articles(ctx, filter)
		if err != nil {
			return fmt.Errorf("articles: %w", err)
		}
		return printJSON(arts)

	case o.images:
		imgs, err := svc.Images(ctx, filter)
		if err != nil {
			return fmt.Errorf("images: %w", err)
		}
		return printJSON(imgs)

	case o.runs:
		runs, err := svc.Runs(ctx, o.date)
		if err != nil {
			return fmt.Errorf("runs: %w", err)
		}
		return printJSON(runs)
	}

	var res *sintesis.ExtractionResult
	if o.pdfPath != "" {
		res, err = svc.RunExtractionFile(ctx, date, o.pdfPath)
	} else {
		res, err = svc.RunExtraction(ctx, date)
	}
	if res != nil {
		if perr := printJSON(res); perr != nil {
			logger.Warn("sintesis: print result", "error", perr)
		}
	}
	return err
}

func resolveConfig(configPath, dbPath string) (*sintesis.Config, error) {
	cfg := &sintesis.Config{}
	if configPath != "" {
		c, err := sintesis.LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	if configPath == "" && cfg.DBPath == "" {
		fmt.Fprintln(os.Stderr, "usage: sintesis -config <file> | -db <path> [-date YYYY-MM-DD] [-pdf <file>] [-articles|-images|-runs|-mcp|-watch]")
		os.Exit(1)
	}
	return cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
