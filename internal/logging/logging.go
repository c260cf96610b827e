package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"biodivscope-backend-go/internal/config"
)

const defaultRetentionDays = 7

// Setup installs the default slog logger. Output goes to stdout and, when the
// log directory is usable, to a rotated app.log inside it.
func Setup(cfg config.Config) (*slog.Logger, func()) {
	var out io.Writer = os.Stdout
	cleanup := func() {}
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		log.Printf("logger setup failed: %v", err)
	} else {
		file := rotatingFile(cfg.LogDir, cfg.LogRetentionDays)
		out = io.MultiWriter(os.Stdout, file)
		cleanup = func() { _ = file.Close() }
	}

	logger := New(out, cfg.LogLevel)
	slog.SetDefault(logger)
	return logger, cleanup
}

func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// rotatingFile keeps rotated logs for retentionDays, or the default when the
// value is not positive.
func rotatingFile(dir string, retentionDays int) *lumberjack.Logger {
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	return &lumberjack.Logger{
		Filename: filepath.Join(dir, "app.log"),
		MaxSize:  50,
		MaxAge:   retentionDays,
	}
}
