package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging installs the process logger: a console writer on stderr,
// plus a rotating file when logFile is set. Library code picks it up via
// log.Ctx.
func setupLogging(level string, logFile string) zerolog.Logger {
	logger := newLogger(os.Stderr, level, logFile)
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger
	return logger
}

// newLogger writes to console and, when its directory can be created, to a
// rotating logFile. A log file that cannot be opened is reported on console.
func newLogger(console io.Writer, level string, logFile string) zerolog.Logger {
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly}}
	var fileErr error
	if logFile = strings.TrimSpace(logFile); logFile != "" {
		fileErr = os.MkdirAll(filepath.Dir(logFile), 0o755)
		if fileErr == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
				Compress:   true,
			})
		}
	}
	zerolog.SetGlobalLevel(parseLevel(level))
	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	if fileErr != nil {
		logger.Warn().Err(fileErr).Str("path", logFile).Msg("log file disabled, logging to console only")
	}
	return logger
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
