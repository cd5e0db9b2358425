package tts

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Espeak speaks through the local espeak-ng engine.
type Espeak struct {
	binary string
	opts   Options
	logger *log.Logger
	run    func(ctx context.Context, name string, args ...string) error
}

func NewEspeak(opts Options, logger *log.Logger) *Espeak {
	return &Espeak{
		binary: "espeak-ng",
		opts:   opts.Normalized(),
		logger: logger,
		run:    runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// args maps rate and volume onto espeak's -s (wpm) and -a (0-200) flags.
func (e *Espeak) args(text string) []string {
	amplitude := int(math.Round(e.opts.Volume * 200))
	args := []string{
		"-s", strconv.Itoa(e.opts.Rate),
		"-a", strconv.Itoa(amplitude),
	}
	if e.opts.Voice != "" {
		args = append(args, "-v", e.opts.Voice)
	}
	return append(args, "--", text)
}

func (e *Espeak) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	e.logger.Debug("speak", "engine", e.binary, "chars", len(text))
	if err := e.run(ctx, e.binary, e.args(text)...); err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	return nil
}
