package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anime-shed/receipt-inspector-go/internal/config"
	"github.com/anime-shed/receipt-inspector-go/internal/container"
	"github.com/anime-shed/receipt-inspector-go/internal/logger"
	"github.com/anime-shed/receipt-inspector-go/internal/ocr"
	"github.com/anime-shed/receipt-inspector-go/internal/ocr/tesseract"

	"github.com/sirupsen/logrus"
)

const shutdownGrace = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.WithError(err).Error("Receipt inspector stopped with error")
		os.Exit(1)
	}
	logger.Info("Server exited")
}

// run serves until ctx is canceled, then drains in-flight assessments
func run(ctx context.Context, cfg *config.Config) error {
	c, err := container.NewContainer(cfg, container.WithRecognizerFactory(newTesseractRecognizer))
	if err != nil {
		return fmt.Errorf("initialize container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.WithError(err).Error("Failed to release resources")
		}
	}()

	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      c.Handler(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"address":     cfg.ServerAddress(),
			"storage":     cfg.StorageBackend,
			"ocr":         cfg.OCREnabled,
			"persistence": persistenceName(cfg),
		}).Info("Starting receipt inspector")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.ServerAddress(), err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// newTesseractRecognizer accepts OCR_LANGUAGE as "eng+deu" or "eng,deu"
func newTesseractRecognizer(cfg *config.Config) (ocr.Recognizer, error) {
	tc := tesseract.DefaultConfig()
	if langs := strings.FieldsFunc(cfg.OCRLanguage, func(r rune) bool { return r == '+' || r == ',' }); len(langs) > 0 {
		tc.Languages = langs
	}
	return tesseract.NewRecognizer(tc)
}

func persistenceName(cfg *config.Config) string {
	if cfg.DatabaseDSN != "" {
		return "postgres"
	}
	return "memory"
}
