package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"node.town/parley/lang"
	"node.town/parley/snd"
	"node.town/parley/stt"
	"node.town/parley/transcript"
	"node.town/parley/translate"
	"node.town/parley/tts"
)

const (
	MinSensitivity     = 0.5
	MaxSensitivity     = 5.0
	DefaultSensitivity = 1.0
)

// Origin tells how the text of a pair entered the pipeline.
type Origin string

const (
	OriginVoice Origin = "voice"
	OriginText  Origin = "text"
)

// Archive receives every completed pair. Failures are logged and otherwise
// ignored.
type Archive interface {
	Save(ctx context.Context, pair transcript.Pair, origin Origin) error
}

// State is what the interactive surface renders.
type State struct {
	Recognized  string
	Translated  string
	Status      string
	Busy        bool
	Target      lang.Language
	Sensitivity float64
}

type Config struct {
	Source     snd.Source
	Recognizer stt.Recognizer
	Translator translate.Translator
	Speaker    tts.Speaker
	History    *transcript.History // New history when nil
	Archive    Archive             // Optional
	Logger     *log.Logger

	Target         lang.Language // Default language when zero
	Sensitivity    float64       // Seconds of ambient calibration
	CaptureTimeout time.Duration // Zero waits for speech indefinitely
}

// Controller owns the pipeline state and runs at most one pipeline at a time.
type Controller struct {
	source     snd.Source
	recognizer stt.Recognizer
	translator translate.Translator
	speaker    tts.Speaker
	history    *transcript.History
	archive    Archive
	logger     *log.Logger

	captureTimeout time.Duration

	mu        sync.Mutex
	state     State
	running   bool
	observers []func(Event)

	ctx    context.Context
	cancel context.CancelFunc
	tasks  conc.WaitGroup
}

func New(cfg Config) *Controller {
	if cfg.History == nil {
		cfg.History = transcript.NewHistory()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Target.Code == "" {
		cfg.Target = lang.Default()
	}
	if cfg.Sensitivity == 0 {
		cfg.Sensitivity = DefaultSensitivity
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		source:         cfg.Source,
		recognizer:     cfg.Recognizer,
		translator:     cfg.Translator,
		speaker:        cfg.Speaker,
		history:        cfg.History,
		archive:        cfg.Archive,
		logger:         cfg.Logger,
		captureTimeout: cfg.CaptureTimeout,
		state: State{
			Target:      cfg.Target,
			Sensitivity: ClampSensitivity(cfg.Sensitivity),
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

func ClampSensitivity(v float64) float64 {
	switch {
	case v < MinSensitivity:
		return MinSensitivity
	case v > MaxSensitivity:
		return MaxSensitivity
	default:
		return v
	}
}

func (c *Controller) History() *transcript.History {
	return c.history
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// update applies fn to the state under the lock and notifies observers.
func (c *Controller) update(fn func(s *State)) {
	c.mu.Lock()
	fn(&c.state)
	snapshot := c.state
	c.mu.Unlock()

	c.emit(Event{Kind: EventState, State: snapshot})
}

func (c *Controller) setStatus(status string) {
	c.update(func(s *State) { s.Status = status })
}

// SetRecognized replaces the recognized buffer, e.g. with operator input.
func (c *Controller) SetRecognized(text string) {
	c.update(func(s *State) { s.Recognized = text })
}

func (c *Controller) SetTarget(l lang.Language) {
	c.update(func(s *State) { s.Target = l })
}

func (c *Controller) SetTargetByName(name string) error {
	l, err := lang.ByName(name)
	if err != nil {
		return err
	}
	c.SetTarget(l)
	return nil
}

// SetSensitivity stores v clamped to the allowed range and returns it.
func (c *Controller) SetSensitivity(v float64) float64 {
	v = ClampSensitivity(v)
	c.update(func(s *State) { s.Sensitivity = v })
	return v
}

// Clear empties both buffers and the status. History is untouched.
func (c *Controller) Clear() {
	c.update(func(s *State) {
		s.Recognized = ""
		s.Translated = ""
		s.Status = ""
	})
}

// begin reserves the single pipeline slot.
func (c *Controller) begin() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return newError(KindBusy, ErrBusy)
	}
	c.running = true
	c.state.Busy = true
	snapshot := c.state
	c.mu.Unlock()

	c.emit(Event{Kind: EventState, State: snapshot})
	return nil
}

// end releases the slot. Observers never see Busy cleared while the slot is
// still held.
func (c *Controller) end() {
	c.mu.Lock()
	c.running = false
	c.state.Busy = false
	snapshot := c.state
	c.mu.Unlock()

	c.emit(Event{Kind: EventState, State: snapshot})
}

func (c *Controller) progress(on bool) {
	if on {
		c.emit(Event{Kind: EventProgressStarted})
	} else {
		c.emit(Event{Kind: EventProgressStopped})
	}
}

// safely runs fn, turning a panic into a failure of this run only.
func (c *Controller) safely(fn func() (transcript.Pair, error)) (pair transcript.Pair, err error) {
	var pc panics.Catcher
	pc.Try(func() { pair, err = fn() })
	if r := pc.Recovered(); r != nil {
		c.logger.Error("pipeline panic", "value", r.Value)
		return transcript.Pair{}, newError(KindFailure, r.AsError())
	}
	return pair, err
}

func (c *Controller) fail(err error) {
	c.logger.Warn("pipeline stopped", "kind", KindOf(err), "error", err)
	c.setStatus(StatusFor(err))
}

func (c *Controller) complete(ctx context.Context, pair transcript.Pair, origin Origin) {
	c.history.Append(pair)
	c.emit(Event{Kind: EventHistoryAppended, Pair: pair})

	if c.archive != nil {
		if err := c.archive.Save(ctx, pair, origin); err != nil {
			c.logger.Error("archive translation", "error", err)
		}
	}

	c.setStatus(StatusCompleted)
}

// CaptureAndTranslate records one utterance, recognizes, translates and
// speaks it, then appends the pair to the history.
func (c *Controller) CaptureAndTranslate(ctx context.Context) (transcript.Pair, error) {
	if err := c.begin(); err != nil {
		return transcript.Pair{}, err
	}
	defer c.end()
	return c.captureAndTranslate(ctx)
}

func (c *Controller) captureAndTranslate(ctx context.Context) (transcript.Pair, error) {
	c.progress(true)
	pair, err := c.safely(func() (transcript.Pair, error) {
		return c.runVoice(ctx)
	})
	c.progress(false)

	if err != nil {
		c.fail(err)
		return transcript.Pair{}, err
	}
	c.complete(ctx, pair, OriginVoice)
	return pair, nil
}

func (c *Controller) capture(ctx context.Context) (snd.Sample, error) {
	if c.captureTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.captureTimeout)
		defer cancel()
	}

	stream, err := c.source.Open(ctx)
	if err != nil {
		return snd.Sample{}, err
	}
	defer func() {
		if err := stream.Close(); err != nil {
			c.logger.Warn("close audio stream", "error", err)
		}
	}()

	sensitivity := c.Snapshot().Sensitivity
	calibration := time.Duration(sensitivity * float64(time.Second))
	if err := stream.Calibrate(ctx, calibration); err != nil {
		return snd.Sample{}, err
	}

	c.setStatus(StatusListening)
	return stream.Listen(ctx)
}

func (c *Controller) runVoice(ctx context.Context) (transcript.Pair, error) {
	sample, err := c.capture(ctx)
	if err != nil {
		return transcript.Pair{}, newError(KindFailure, err)
	}

	res, err := c.recognizer.Recognize(ctx, sample)
	if err != nil {
		return transcript.Pair{}, recognitionError(err)
	}
	c.SetRecognized(res.Text)

	return c.translateAndSpeak(ctx, res.Text)
}

func (c *Controller) translateAndSpeak(ctx context.Context, text string) (transcript.Pair, error) {
	target := c.Snapshot().Target

	translated, err := c.translator.Translate(ctx, text, translate.Auto, target.Code)
	if err != nil {
		return transcript.Pair{}, newError(KindFailure, err)
	}
	c.update(func(s *State) { s.Translated = translated })

	if err := c.speaker.Speak(ctx, translated); err != nil {
		return transcript.Pair{}, newError(KindFailure, err)
	}

	return transcript.Pair{
		Recognized: text,
		Translated: translated,
		Target:     target.Code,
		CreatedAt:  time.Now(),
	}, nil
}

// TranslateText translates operator-typed text, speaks it and appends the
// pair to the history. Blank text is rejected before any service is called.
func (c *Controller) TranslateText(ctx context.Context, text string) (transcript.Pair, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		err := newError(KindInvalidInput, ErrEmptyInput)
		c.setStatus(StatusFor(err))
		return transcript.Pair{}, err
	}

	if err := c.begin(); err != nil {
		return transcript.Pair{}, err
	}
	defer c.end()
	return c.translateText(ctx, text)
}

func (c *Controller) translateText(ctx context.Context, text string) (transcript.Pair, error) {
	c.SetRecognized(text)

	c.progress(true)
	pair, err := c.safely(func() (transcript.Pair, error) {
		return c.translateAndSpeak(ctx, text)
	})
	c.progress(false)

	if err != nil {
		c.fail(err)
		return transcript.Pair{}, err
	}
	c.complete(ctx, pair, OriginText)
	return pair, nil
}

// Save exports the current buffers to path.
func (c *Controller) Save(path string) error {
	s := c.Snapshot()
	err := transcript.Export(path, s.Recognized, s.Translated)
	switch {
	case errors.Is(err, transcript.ErrNothingToSave):
		pe := newError(KindInvalidInput, err)
		c.setStatus(StatusFor(pe))
		return pe
	case err != nil:
		pe := newError(KindFailure, err)
		c.setStatus(StatusFor(pe))
		return pe
	}
	c.setStatus(fmt.Sprintf("Translation saved to %s", path))
	return nil
}
