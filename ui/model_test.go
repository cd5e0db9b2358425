package ui

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"node.town/parley/lang"
	"node.town/parley/pipeline"
)

type MockTranslator struct{}

func (MockTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	return strings.ToUpper(text), nil
}

type MockSpeaker struct{}

func (MockSpeaker) Speak(ctx context.Context, text string) error { return nil }

func newTestModel() (Model, *pipeline.Controller) {
	logger := log.New(io.Discard)
	c := pipeline.New(pipeline.Config{
		Translator: MockTranslator{},
		Speaker:    MockSpeaker{},
		Logger:     logger,
	})
	m := New(c, logger)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model), c
}

// drain feeds every queued controller event back into the model.
func drain(m Model) Model {
	for {
		select {
		case e := <-m.events:
			next, _ := m.Update(eventMsg(e))
			m = next.(Model)
		default:
			return m
		}
	}
}

func press(m Model, key tea.KeyType) Model {
	next, _ := m.Update(tea.KeyMsg{Type: key})
	return drain(next.(Model))
}

func TestView(t *testing.T) {
	m, _ := newTestModel()
	view := m.View()

	for _, want := range []string{"Parley", "French", "Recognized/Text Input", "Translated Text"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestLanguageKeys(t *testing.T) {
	m, c := newTestModel()

	m = press(m, tea.KeyCtrlN)
	want := lang.Step(lang.Default(), 1)
	if got := c.Snapshot().Target; got != want {
		t.Errorf("Target = %+v, want %+v", got, want)
	}
	if !strings.Contains(m.View(), want.Name) {
		t.Errorf("View() missing %q", want.Name)
	}

	press(m, tea.KeyCtrlP)
	if got := c.Snapshot().Target; got != lang.Default() {
		t.Errorf("Target = %+v, want %+v", got, lang.Default())
	}
}

func TestSensitivityKeys(t *testing.T) {
	m, c := newTestModel()

	m = press(m, tea.KeyCtrlUp)
	if got := c.Snapshot().Sensitivity; got != 1.5 {
		t.Errorf("Sensitivity = %v, want 1.5", got)
	}
	for i := 0; i < 5; i++ {
		m = press(m, tea.KeyCtrlDown)
	}
	if got := c.Snapshot().Sensitivity; got != pipeline.MinSensitivity {
		t.Errorf("Sensitivity = %v, want %v", got, pipeline.MinSensitivity)
	}
}

func TestRecognizedFollowsController(t *testing.T) {
	m, c := newTestModel()

	c.SetRecognized("hello")
	m = drain(m)
	if got := m.input.Value(); got != "hello" {
		t.Errorf("input = %q, want %q", got, "hello")
	}

	m = press(m, tea.KeyCtrlL)
	if got := m.input.Value(); got != "" {
		t.Errorf("input after clear = %q, want empty", got)
	}
}

func typeText(m Model, text string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return drain(next.(Model))
}

func TestClearTypedText(t *testing.T) {
	m, c := newTestModel()

	m = typeText(m, "hello")
	if got := m.input.Value(); got != "hello" {
		t.Fatalf("input = %q, want %q", got, "hello")
	}

	m = press(m, tea.KeyCtrlL)
	if got := m.input.Value(); got != "" {
		t.Errorf("input after clear = %q, want empty", got)
	}
	if got := c.Snapshot().Recognized; got != "" {
		t.Errorf("Recognized after clear = %q, want empty", got)
	}

	// typing again after a clear is not undone by late events
	m = typeText(m, "again")
	if got := m.input.Value(); got != "again" {
		t.Errorf("input = %q, want %q", got, "again")
	}
}

func TestSaveTypedText(t *testing.T) {
	m, c := newTestModel()
	path := filepath.Join(t.TempDir(), "out.txt")

	m = typeText(m, "hello")
	m = press(m, tea.KeyCtrlS)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(path)})
	m = press(next.(Model), tea.KeyEnter)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := "Recognized/Text Input:\nhello\n\nTranslated Text:\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
	if got := m.state.Status; got != "Translation saved to "+path {
		t.Errorf("status = %q", got)
	}
	if got := m.input.Value(); got != "hello" {
		t.Errorf("input after save = %q, want %q", got, "hello")
	}
	if got := c.Snapshot().Recognized; got != "hello" {
		t.Errorf("Recognized = %q, want %q", got, "hello")
	}
}

type blockingTranslator struct {
	entered chan struct{}
	release chan struct{}
}

func (b blockingTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	close(b.entered)
	<-b.release
	return text, nil
}

func TestBusyNotice(t *testing.T) {
	logger := log.New(io.Discard)
	tr := blockingTranslator{entered: make(chan struct{}), release: make(chan struct{})}
	c := pipeline.New(pipeline.Config{
		Translator: tr,
		Speaker:    MockSpeaker{},
		Logger:     logger,
	})
	next, _ := New(c, logger).Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m := next.(Model)

	// started outside the model, so its state has not caught up yet
	if err := c.StartTranslate("first", nil); err != nil {
		t.Fatalf("StartTranslate() error = %v", err)
	}
	<-tr.entered

	m.input.SetValue("second")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	m = next.(Model)

	if m.notice != pipeline.StatusBusy {
		t.Errorf("notice = %q, want %q", m.notice, pipeline.StatusBusy)
	}
	if !strings.Contains(m.footerView(), pipeline.StatusBusy) {
		t.Errorf("footer missing busy notice")
	}

	close(tr.release)
	c.Wait()
	m = drain(m)

	m = press(m, tea.KeyCtrlP)
	if m.notice != "" {
		t.Errorf("notice = %q after next key, want empty", m.notice)
	}
}

func TestTranslateKey(t *testing.T) {
	m, c := newTestModel()
	m.input.SetValue("bonjour")

	m = press(m, tea.KeyCtrlT)
	c.Wait()
	m = drain(m)

	if got := c.Snapshot().Translated; got != "BONJOUR" {
		t.Errorf("Translated = %q, want %q", got, "BONJOUR")
	}
	if !strings.Contains(m.View(), "BONJOUR") {
		t.Errorf("View() missing translation")
	}
	if got := m.state.Status; got != pipeline.StatusCompleted {
		t.Errorf("status = %q, want %q", got, pipeline.StatusCompleted)
	}

	m = press(m, tea.KeyTab)
	if !m.showHistory {
		t.Fatalf("tab did not switch to history")
	}
	if !strings.Contains(m.View(), "Original: bonjour") {
		t.Errorf("history view missing pair")
	}
}

func TestSaveNothing(t *testing.T) {
	m, _ := newTestModel()

	m = press(m, tea.KeyCtrlS)
	if !m.saving {
		t.Fatalf("ctrl+s did not open the save prompt")
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(t.TempDir() + "/out.txt")})
	m = press(next.(Model), tea.KeyEnter)

	if m.saving {
		t.Errorf("save prompt still open")
	}
	if got := m.state.Status; got != pipeline.StatusNothingToSave {
		t.Errorf("status = %q, want %q", got, pipeline.StatusNothingToSave)
	}
}
