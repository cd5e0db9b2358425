package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"node.town/parley/lang"
	"node.town/parley/snd"
	"node.town/parley/stt"
	"node.town/parley/transcript"
)

type MockStream struct {
	calibrated time.Duration
	listenErr  error
	block      bool
	closed     bool
}

func (m *MockStream) Calibrate(ctx context.Context, d time.Duration) error {
	m.calibrated = d
	return nil
}

func (m *MockStream) Listen(ctx context.Context) (snd.Sample, error) {
	if m.block {
		<-ctx.Done()
		return snd.Sample{}, ctx.Err()
	}
	if m.listenErr != nil {
		return snd.Sample{}, m.listenErr
	}
	return snd.Sample{PCM: make([]int16, 160), SampleRate: 16000}, nil
}

func (m *MockStream) Close() error {
	m.closed = true
	return nil
}

type MockSource struct {
	stream *MockStream
	opened int
}

func (m *MockSource) Open(ctx context.Context) (snd.Stream, error) {
	m.opened++
	return m.stream, nil
}

type MockRecognizer struct {
	texts []string
	err   error
	calls int
}

func (m *MockRecognizer) Recognize(ctx context.Context, sample snd.Sample) (stt.Result, error) {
	m.calls++
	if m.err != nil {
		return stt.Result{}, m.err
	}
	text := m.texts[0]
	m.texts = m.texts[1:]
	return stt.Result{Text: text}, nil
}

type MockTranslator struct {
	mu      sync.Mutex
	fn      func(text, target string) (string, error)
	calls   int
	targets []string
}

func (m *MockTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.targets = append(m.targets, target)
	m.mu.Unlock()
	if m.fn == nil {
		return text, nil
	}
	return m.fn(text, target)
}

type MockSpeaker struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (m *MockSpeaker) Speak(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spoken = append(m.spoken, text)
	return m.err
}

type MockArchive struct {
	origins []Origin
	err     error
}

func (m *MockArchive) Save(ctx context.Context, pair transcript.Pair, origin Origin) error {
	m.origins = append(m.origins, origin)
	return m.err
}

type fixture struct {
	source     *MockSource
	recognizer *MockRecognizer
	translator *MockTranslator
	speaker    *MockSpeaker
	archive    *MockArchive
	controller *Controller
}

func newFixture(texts ...string) *fixture {
	f := &fixture{
		source:     &MockSource{stream: &MockStream{}},
		recognizer: &MockRecognizer{texts: texts},
		translator: &MockTranslator{},
		speaker:    &MockSpeaker{},
		archive:    &MockArchive{},
	}
	f.controller = New(Config{
		Source:     f.source,
		Recognizer: f.recognizer,
		Translator: f.translator,
		Speaker:    f.speaker,
		Archive:    f.archive,
		Logger:     log.New(io.Discard),
	})
	return f
}

func TestTranslateText(t *testing.T) {
	t.Run("Identity Translator", func(t *testing.T) {
		f := newFixture()
		c := f.controller

		pair, err := c.TranslateText(context.Background(), "  bonjour  ")
		if err != nil {
			t.Fatalf("TranslateText() error = %v", err)
		}

		s := c.Snapshot()
		if s.Recognized != "bonjour" || s.Translated != "bonjour" {
			t.Errorf("buffers = %q / %q, want bonjour / bonjour", s.Recognized, s.Translated)
		}
		if s.Status != StatusCompleted {
			t.Errorf("Status = %q, want %q", s.Status, StatusCompleted)
		}
		if s.Busy {
			t.Errorf("Busy = true after completion")
		}
		if pair.Target != "fr" {
			t.Errorf("Target = %q, want %q", pair.Target, "fr")
		}
		if got := c.History().Pairs(); len(got) != 1 || got[0].Recognized != "bonjour" {
			t.Errorf("History = %+v, want one pair", got)
		}
		if len(f.speaker.spoken) != 1 || f.speaker.spoken[0] != "bonjour" {
			t.Errorf("spoken = %v, want [bonjour]", f.speaker.spoken)
		}
		if len(f.archive.origins) != 1 || f.archive.origins[0] != OriginText {
			t.Errorf("archive origins = %v, want [text]", f.archive.origins)
		}
	})

	t.Run("Blank Input", func(t *testing.T) {
		f := newFixture()
		c := f.controller

		_, err := c.TranslateText(context.Background(), " \n\t ")
		if KindOf(err) != KindInvalidInput {
			t.Fatalf("KindOf() = %v, want %v", KindOf(err), KindInvalidInput)
		}
		if f.translator.calls != 0 || len(f.speaker.spoken) != 0 {
			t.Errorf("services called for blank input")
		}
		if got := c.Snapshot().Status; got != StatusEmptyInput {
			t.Errorf("Status = %q, want %q", got, StatusEmptyInput)
		}
		if c.History().Len() != 0 {
			t.Errorf("History grew on blank input")
		}
	})

	t.Run("Uses Current Target", func(t *testing.T) {
		f := newFixture()
		c := f.controller

		if err := c.SetTargetByName("japanese"); err != nil {
			t.Fatalf("SetTargetByName() error = %v", err)
		}
		if _, err := c.TranslateText(context.Background(), "hello"); err != nil {
			t.Fatalf("TranslateText() error = %v", err)
		}
		if f.translator.targets[0] != "ja" {
			t.Errorf("target = %q, want %q", f.translator.targets[0], "ja")
		}
	})

	t.Run("Translator Failure", func(t *testing.T) {
		f := newFixture()
		f.translator.fn = func(string, string) (string, error) {
			return "", errors.New("quota exceeded")
		}
		c := f.controller

		_, err := c.TranslateText(context.Background(), "hello")
		if KindOf(err) != KindFailure {
			t.Fatalf("KindOf() = %v, want %v", KindOf(err), KindFailure)
		}
		if got := c.Snapshot().Status; got != "An error occurred: quota exceeded" {
			t.Errorf("Status = %q", got)
		}
		if c.History().Len() != 0 {
			t.Errorf("History grew on failure")
		}
	})
}

func TestCaptureAndTranslate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newFixture("hello")
		f.translator.fn = func(text, target string) (string, error) {
			return "bonjour", nil
		}
		c := f.controller
		c.SetSensitivity(2)

		pair, err := c.CaptureAndTranslate(context.Background())
		if err != nil {
			t.Fatalf("CaptureAndTranslate() error = %v", err)
		}
		if pair.Recognized != "hello" || pair.Translated != "bonjour" {
			t.Errorf("pair = %+v", pair)
		}
		if f.source.stream.calibrated != 2*time.Second {
			t.Errorf("calibrated = %v, want 2s", f.source.stream.calibrated)
		}
		if !f.source.stream.closed {
			t.Errorf("stream not closed")
		}
		if got := c.Snapshot(); got.Recognized != "hello" || got.Translated != "bonjour" {
			t.Errorf("buffers = %q / %q", got.Recognized, got.Translated)
		}
		if len(f.archive.origins) != 1 || f.archive.origins[0] != OriginVoice {
			t.Errorf("archive origins = %v, want [voice]", f.archive.origins)
		}
	})

	t.Run("Not Understood", func(t *testing.T) {
		f := newFixture()
		f.recognizer.err = stt.ErrNotUnderstood
		c := f.controller
		c.SetRecognized("earlier")

		_, err := c.CaptureAndTranslate(context.Background())
		if KindOf(err) != KindNotUnderstood {
			t.Fatalf("KindOf() = %v, want %v", KindOf(err), KindNotUnderstood)
		}
		s := c.Snapshot()
		if s.Recognized != "earlier" || s.Translated != "" {
			t.Errorf("buffers changed: %q / %q", s.Recognized, s.Translated)
		}
		if s.Status != StatusNotUnderstood {
			t.Errorf("Status = %q, want %q", s.Status, StatusNotUnderstood)
		}
		if f.translator.calls != 0 || len(f.speaker.spoken) != 0 {
			t.Errorf("translate or speak called after recognition failure")
		}
		if c.History().Len() != 0 {
			t.Errorf("History grew on failure")
		}
	})

	t.Run("Unreachable", func(t *testing.T) {
		f := newFixture()
		f.recognizer.err = stt.ErrUnreachable
		c := f.controller

		_, err := c.CaptureAndTranslate(context.Background())
		if KindOf(err) != KindUnreachable {
			t.Fatalf("KindOf() = %v, want %v", KindOf(err), KindUnreachable)
		}
		if got := c.Snapshot().Status; got != StatusUnreachable {
			t.Errorf("Status = %q, want %q", got, StatusUnreachable)
		}
	})

	t.Run("Capture Failure", func(t *testing.T) {
		f := newFixture()
		f.source.stream.listenErr = snd.ErrNoInputDevice
		c := f.controller

		_, err := c.CaptureAndTranslate(context.Background())
		if KindOf(err) != KindFailure || !errors.Is(err, snd.ErrNoInputDevice) {
			t.Fatalf("CaptureAndTranslate() error = %v", err)
		}
		if f.recognizer.calls != 0 {
			t.Errorf("recognizer called after capture failure")
		}
		if !strings.HasPrefix(c.Snapshot().Status, "An error occurred: ") {
			t.Errorf("Status = %q", c.Snapshot().Status)
		}
	})

	t.Run("Capture Timeout", func(t *testing.T) {
		f := newFixture()
		f.source.stream.block = true
		c := New(Config{
			Source:         f.source,
			Recognizer:     f.recognizer,
			Translator:     f.translator,
			Speaker:        f.speaker,
			Logger:         log.New(io.Discard),
			CaptureTimeout: 10 * time.Millisecond,
		})

		_, err := c.CaptureAndTranslate(context.Background())
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("CaptureAndTranslate() error = %v, want deadline exceeded", err)
		}
	})

	t.Run("History Order", func(t *testing.T) {
		f := newFixture("one", "two", "three")
		c := f.controller

		for i := 0; i < 3; i++ {
			if _, err := c.CaptureAndTranslate(context.Background()); err != nil {
				t.Fatalf("CaptureAndTranslate() error = %v", err)
			}
		}
		pairs := c.History().Pairs()
		if len(pairs) != 3 {
			t.Fatalf("len(History) = %d, want 3", len(pairs))
		}
		for i, want := range []string{"one", "two", "three"} {
			if pairs[i].Recognized != want {
				t.Errorf("pairs[%d] = %q, want %q", i, pairs[i].Recognized, want)
			}
		}
	})
}

type panicTranslator struct{}

func (panicTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	panic("boom")
}

func TestPanicIsContained(t *testing.T) {
	c := New(Config{
		Translator: panicTranslator{},
		Speaker:    &MockSpeaker{},
		Logger:     log.New(io.Discard),
	})

	_, err := c.TranslateText(context.Background(), "hello")
	if KindOf(err) != KindFailure {
		t.Fatalf("KindOf() = %v, want %v", KindOf(err), KindFailure)
	}
	if c.Snapshot().Busy {
		t.Errorf("Busy = true after panic")
	}

	// The controller stays usable.
	c.translator = &MockTranslator{}
	if _, err := c.TranslateText(context.Background(), "hello"); err != nil {
		t.Errorf("TranslateText() after panic error = %v", err)
	}
}

func TestBusy(t *testing.T) {
	f := newFixture()
	release := make(chan struct{})
	entered := make(chan struct{})
	f.translator.fn = func(text, target string) (string, error) {
		close(entered)
		<-release
		return text, nil
	}
	c := f.controller

	done := make(chan error, 1)
	if err := c.StartTranslate("first", func(_ transcript.Pair, err error) { done <- err }); err != nil {
		t.Fatalf("StartTranslate() error = %v", err)
	}
	<-entered

	if !c.Snapshot().Busy {
		t.Errorf("Busy = false while running")
	}
	if _, err := c.TranslateText(context.Background(), "second"); KindOf(err) != KindBusy {
		t.Errorf("TranslateText() while busy error = %v, want busy", err)
	}
	if err := c.StartCapture(nil); KindOf(err) != KindBusy {
		t.Errorf("StartCapture() while busy error = %v, want busy", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first run error = %v", err)
	}
	c.Wait()

	if c.History().Len() != 1 {
		t.Errorf("len(History) = %d, want 1", c.History().Len())
	}
	if c.Snapshot().Busy {
		t.Errorf("Busy = true after Wait")
	}
}

func TestNotBusyMeansAvailable(t *testing.T) {
	c := newFixture().controller

	var sawBusy, checked bool
	var beginErr error
	c.Subscribe(func(e Event) {
		if e.Kind != EventState {
			return
		}
		if e.State.Busy {
			sawBusy = true
			return
		}
		if sawBusy && !checked {
			checked = true
			beginErr = c.begin()
			if beginErr == nil {
				c.end()
			}
		}
	})

	if _, err := c.TranslateText(context.Background(), "hello"); err != nil {
		t.Fatalf("TranslateText() error = %v", err)
	}
	if !checked {
		t.Fatalf("never observed Busy cleared")
	}
	if beginErr != nil {
		t.Errorf("begin() after Busy cleared error = %v, want nil", beginErr)
	}
}

func TestShutdown(t *testing.T) {
	f := newFixture()
	f.source.stream.block = true
	c := f.controller

	done := make(chan error, 1)
	if err := c.StartCapture(func(_ transcript.Pair, err error) { done <- err }); err != nil {
		t.Fatalf("StartCapture() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("run error = %v, want canceled", err)
	}
}

func TestEvents(t *testing.T) {
	f := newFixture("hello")
	c := f.controller

	var mu sync.Mutex
	var kinds []EventKind
	c.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, e.Kind)
	})

	if _, err := c.CaptureAndTranslate(context.Background()); err != nil {
		t.Fatalf("CaptureAndTranslate() error = %v", err)
	}

	count := map[EventKind]int{}
	for _, k := range kinds {
		count[k]++
	}
	if count[EventProgressStarted] != 1 || count[EventProgressStopped] != 1 {
		t.Errorf("progress events = %v", count)
	}
	if count[EventHistoryAppended] != 1 {
		t.Errorf("history events = %d, want 1", count[EventHistoryAppended])
	}

	var started, stopped int
	for i, k := range kinds {
		switch k {
		case EventProgressStarted:
			started = i
		case EventProgressStopped:
			stopped = i
		}
	}
	if started >= stopped {
		t.Errorf("progress stopped before it started: %v", kinds)
	}
}

func TestArchiveFailureIgnored(t *testing.T) {
	f := newFixture()
	f.archive.err = errors.New("connection refused")
	c := f.controller

	if _, err := c.TranslateText(context.Background(), "hello"); err != nil {
		t.Fatalf("TranslateText() error = %v", err)
	}
	if got := c.Snapshot().Status; got != StatusCompleted {
		t.Errorf("Status = %q, want %q", got, StatusCompleted)
	}
}

func TestSave(t *testing.T) {
	t.Run("Nothing To Save", func(t *testing.T) {
		c := newFixture().controller
		path := filepath.Join(t.TempDir(), "out.txt")

		if err := c.Save(path); KindOf(err) != KindInvalidInput {
			t.Fatalf("Save() error = %v, want invalid input", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("file created with nothing to save")
		}
		if got := c.Snapshot().Status; got != StatusNothingToSave {
			t.Errorf("Status = %q, want %q", got, StatusNothingToSave)
		}
	})

	t.Run("Content", func(t *testing.T) {
		f := newFixture()
		f.translator.fn = func(text, target string) (string, error) {
			return "Hola", nil
		}
		c := f.controller
		if _, err := c.TranslateText(context.Background(), "Hello"); err != nil {
			t.Fatalf("TranslateText() error = %v", err)
		}

		path := filepath.Join(t.TempDir(), "out.txt")
		if err := c.Save(path); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		want := "Recognized/Text Input:\nHello\n\nTranslated Text:\nHola"
		if string(data) != want {
			t.Errorf("file = %q, want %q", data, want)
		}
		if got := c.Snapshot().Status; got != "Translation saved to "+path {
			t.Errorf("Status = %q", got)
		}
	})
}

func TestClear(t *testing.T) {
	c := newFixture().controller
	if _, err := c.TranslateText(context.Background(), "hello"); err != nil {
		t.Fatalf("TranslateText() error = %v", err)
	}

	c.Clear()

	s := c.Snapshot()
	if s.Recognized != "" || s.Translated != "" || s.Status != "" {
		t.Errorf("Clear() left %+v", s)
	}
	if c.History().Len() != 1 {
		t.Errorf("Clear() touched history")
	}
}

func TestSensitivity(t *testing.T) {
	c := newFixture().controller

	tests := []struct {
		in, want float64
	}{
		{0.1, MinSensitivity},
		{1.5, 1.5},
		{9, MaxSensitivity},
	}
	for _, tt := range tests {
		if got := c.SetSensitivity(tt.in); got != tt.want {
			t.Errorf("SetSensitivity(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := c.Snapshot().Sensitivity; got != MaxSensitivity {
		t.Errorf("Sensitivity = %v, want %v", got, MaxSensitivity)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not understood", newError(KindNotUnderstood, stt.ErrNotUnderstood), StatusNotUnderstood},
		{"unreachable", newError(KindUnreachable, stt.ErrUnreachable), StatusUnreachable},
		{"empty", newError(KindInvalidInput, ErrEmptyInput), StatusEmptyInput},
		{"nothing to save", newError(KindInvalidInput, transcript.ErrNothingToSave), StatusNothingToSave},
		{"busy", newError(KindBusy, ErrBusy), StatusBusy},
		{"failure", newError(KindFailure, errors.New("disk full")), "An error occurred: disk full"},
		{"foreign", errors.New("odd"), "An error occurred: odd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultTarget(t *testing.T) {
	c := New(Config{Logger: log.New(io.Discard)})
	if got := c.Snapshot().Target; got != lang.Default() {
		t.Errorf("Target = %+v, want %+v", got, lang.Default())
	}
}
