package logger

import (
    "os"
    "time"

    "github.com/HamedShams/issue-sync/internal/config"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
)

func New(cfg config.Config) zerolog.Logger {
    level, err := zerolog.ParseLevel(cfg.LogLevel)
    if err != nil || cfg.LogLevel == "" { level = zerolog.InfoLevel }
    if cfg.AppEnv == "dev" {
        output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
        logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
        log.Logger = logger
        return logger
    }
    zerolog.TimeFieldFormat = time.RFC3339
    logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
    log.Logger = logger
    return logger
}
