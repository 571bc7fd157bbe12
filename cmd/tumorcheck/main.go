package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/example/tumor-check/internal/logging"
	"github.com/example/tumor-check/internal/protocol"
	"github.com/example/tumor-check/internal/submission"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Base URL of the analysis server")
	file := flag.String("file", "", "Path to the MRI image to analyze")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	logger, err := logging.NewLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync() //nolint:errcheck

	os.Exit(run(context.Background(), *server, *file, *timeout, os.Stdout, os.Stderr, logger))
}

func run(ctx context.Context, server, path string, timeout time.Duration, stdout, stderr io.Writer, logger *zap.Logger) int {
	if path == "" {
		fmt.Fprintln(stderr, "missing -file")
		return 2
	}
	upload, err := readUpload(path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	client := submission.NewClient(submission.NewHTTPAnalyzer(server, timeout), submission.WithLogger(logger))
	defer client.Close()

	if err := client.SelectFile(upload); err != nil {
		// A missing preview only matters to interactive callers.
		logger.Warn("preview unavailable", zap.String("file", upload.Filename), zap.Error(err))
	}
	client.Submit(ctx)

	view := client.Snapshot()
	if view.State != submission.Succeeded {
		fmt.Fprintln(stderr, view.Error)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(view.Result); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func readUpload(path string) (protocol.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return protocol.Upload{}, fmt.Errorf("read %s: %w", path, err)
	}
	return protocol.Upload{
		Filename:    filepath.Base(path),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}
