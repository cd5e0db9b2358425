package transcript

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrNothingToSave is returned by Export when both texts are empty.
var ErrNothingToSave = errors.New("there is no text to save")

const separatorWidth = 40

// Pair is the result of a single pipeline run.
type Pair struct {
	Recognized string    // Recognized speech or operator-typed text
	Translated string    // Translation into the target language
	Target     string    // Target language code
	CreatedAt  time.Time // When the run completed
}

// Lines renders the pair the way the history view shows it.
func (p Pair) Lines() []string {
	return []string{
		"Original: " + p.Recognized,
		"Translated: " + p.Translated,
		strings.Repeat("-", separatorWidth),
	}
}

// History is an append-only log of pairs. It is safe for concurrent use.
type History struct {
	mu    sync.RWMutex
	pairs []Pair
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Append(p Pair) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pairs = append(h.pairs, p)
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.pairs)
}

// Pairs returns a snapshot of the log in insertion order.
func (h *History) Pairs() []Pair {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Pair(nil), h.pairs...)
}

// Lines returns every pair rendered as three lines, oldest first.
func (h *History) Lines() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	lines := make([]string, 0, len(h.pairs)*3)
	for _, p := range h.pairs {
		lines = append(lines, p.Lines()...)
	}
	return lines
}

// Format builds the export file body for the given texts.
func Format(recognized, translated string) string {
	var b strings.Builder
	b.WriteString("Recognized/Text Input:\n")
	b.WriteString(recognized)
	b.WriteString("\n\n")
	b.WriteString("Translated Text:\n")
	b.WriteString(translated)
	return b.String()
}

// Export writes the recognized and translated texts to path. Both texts are
// trimmed first; when both are empty no file is created.
func Export(path, recognized, translated string) error {
	recognized = strings.TrimSpace(recognized)
	translated = strings.TrimSpace(translated)
	if recognized == "" && translated == "" {
		return ErrNothingToSave
	}

	err := os.WriteFile(path, []byte(Format(recognized, translated)), 0644)
	if err != nil {
		return fmt.Errorf("write translation file: %w", err)
	}
	return nil
}
