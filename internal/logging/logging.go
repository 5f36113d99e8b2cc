package logging

import (
	"github.com/casa-vistamar/booking-api/internal/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger. When LOG_PATH is set, output goes to a
// size-rotated file; otherwise it stays on stderr.
func New(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogPath != "" {
		logger.SetOutput(&lumberjack.Logger{
			Filename:  cfg.LogPath,
			MaxSize:   10,
			LocalTime: true,
		})
	}

	return logger
}
