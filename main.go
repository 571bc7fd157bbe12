package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/tumor-check/internal/classifier"
	"github.com/example/tumor-check/internal/config"
	"github.com/example/tumor-check/internal/grpcclient"
	"github.com/example/tumor-check/internal/handlers"
	"github.com/example/tumor-check/internal/logging"
	"github.com/example/tumor-check/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	c, closer, err := newClassifier(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to set up classifier", zap.Error(err), zap.String("backend", cfg.ClassifierBackend))
	}
	if closer != nil {
		defer closer.Close()
	}

	uc := usecase.NewAnalysisUseCase(c, cfg.ClassifierTimeout, logger)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestID(), handlers.AccessLog(logger))
	r.MaxMultipartMemory = cfg.MaxUploadBytes
	handlers.RegisterRoutes(r, uc, cfg.MaxUploadBytes, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("analysis API listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("classifier", cfg.ClassifierBackend),
		zap.Int64("max_upload_bytes", cfg.MaxUploadBytes),
	)
	if err := serveHTTPServer(server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// newClassifier builds the configured backend. The returned closer, if any,
// must be closed on shutdown.
func newClassifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (classifier.Classifier, io.Closer, error) {
	switch cfg.ClassifierBackend {
	case config.BackendHeuristic:
		return classifier.NewHeuristic(0), nil, nil
	case config.BackendHTTP:
		return classifier.NewRemote(cfg.ClassifierURL, cfg.ClassifierTimeout), nil, nil
	case config.BackendGRPC:
		c, conn, err := grpcclient.DialClassifier(ctx, cfg.ClassifierAddr, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, conn, nil
	default:
		logger.Warn("using fixed stand-in classifier; results do not depend on the image")
		return classifier.NewFixed(cfg.ClassifierDelay), nil, nil
	}
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := signalCh
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigCh = ch
	}

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
