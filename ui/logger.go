package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

// OpenFileLogger returns a logger writing to path and a func closing it.
// The terminal belongs to the program while it runs, so logs go here.
func OpenFileLogger(path string, level log.Level) (*log.Logger, func() error, error) {
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := log.NewWithOptions(logFile, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Level:           level,
	})
	return logger, logFile.Close, nil
}
