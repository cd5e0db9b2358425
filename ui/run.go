package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"node.town/parley/pipeline"
)

const shutdownGrace = 5 * time.Second

// Run shows the terminal surface until the operator quits, then cancels and
// joins any run still in flight.
func Run(ctx context.Context, c *pipeline.Controller, logger *log.Logger) error {
	p := tea.NewProgram(
		New(c, logger),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, runErr := p.Run()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := c.Shutdown(shutdownCtx); err != nil {
		logger.Error("in-flight run did not stop", "error", err)
	}

	return runErr
}
