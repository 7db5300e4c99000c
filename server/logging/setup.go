package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/marcopiovanello/yt-dlp-gui/server/config"
	"github.com/mattn/go-colorable"
)

// Setup builds the default logger from the logging config. The returned
// function rotates and closes the log file, if any.
func Setup(conf config.LoggingConfig, extra ...io.Writer) (func(), error) {
	logWriters := []io.Writer{colorable.NewColorableStdout()}
	logWriters = append(logWriters, extra...)

	cleanup := func() {}

	// file based logging
	if conf.EnableFileLogging {
		logger, err := NewRotableLogger(conf.LogPath)
		if err != nil {
			return cleanup, err
		}

		stop := make(chan struct{})
		go func() {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					logger.Rotate()
				case <-stop:
					return
				}
			}
		}()

		cleanup = func() {
			close(stop)
			logger.Rotate()
			logger.Close()
		}

		logWriters = append(logWriters, logger)
	}

	level := slog.LevelInfo
	if conf.Debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(io.MultiWriter(logWriters...), &slog.HandlerOptions{
		Level: level,
	}))

	// make the new logger the default one with all the new writers
	slog.SetDefault(logger)

	return cleanup, nil
}
