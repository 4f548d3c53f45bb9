package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// InitLogger initializes the structured logger.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// sanitizable is implemented by every per-binary config type, applying
// guardrails after env.Parse populates raw values.
type sanitizable interface {
	Sanitize()
}

// LoadConfig loads .env (if present) then environment variables into cfg,
// which must be a pointer to one of the per-binary config structs.
func LoadConfig[T sanitizable](cfg T) error {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("load .env file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return nil
}
