package pipeline

import (
	"errors"

	"node.town/parley/stt"
	"node.town/parley/transcript"
)

// Kind classifies why a pipeline run stopped.
type Kind int

const (
	KindNone Kind = iota
	KindInvalidInput
	KindNotUnderstood
	KindUnreachable
	KindFailure
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidInput:
		return "invalid-input"
	case KindNotUnderstood:
		return "not-understood"
	case KindUnreachable:
		return "unreachable"
	case KindFailure:
		return "failure"
	case KindBusy:
		return "busy"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyInput = errors.New("empty text input")
	ErrBusy       = errors.New("a translation is already in progress")
)

const (
	StatusListening     = "Listening..."
	StatusCompleted     = "Translation completed!"
	StatusNotUnderstood = "Sorry, could not recognize the speech."
	StatusUnreachable   = "Network error: Could not reach the recognition service."
	StatusEmptyInput    = "Please enter text to translate."
	StatusNothingToSave = "There is no text to save."
	StatusBusy          = "A translation is already in progress."
)

// Error is the result of a failed pipeline operation.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind carried by err, KindFailure for foreign errors and
// KindNone for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindFailure
}

// recognitionError maps a recognizer failure onto the pipeline taxonomy.
func recognitionError(err error) *Error {
	switch {
	case errors.Is(err, stt.ErrNotUnderstood):
		return newError(KindNotUnderstood, err)
	case errors.Is(err, stt.ErrUnreachable):
		return newError(KindUnreachable, err)
	default:
		return newError(KindFailure, err)
	}
}

// StatusFor renders err as the one-line status message shown to the operator.
func StatusFor(err error) string {
	if err == nil {
		return ""
	}
	var pe *Error
	if !errors.As(err, &pe) {
		return "An error occurred: " + err.Error()
	}
	switch pe.Kind {
	case KindNotUnderstood:
		return StatusNotUnderstood
	case KindUnreachable:
		return StatusUnreachable
	case KindBusy:
		return StatusBusy
	case KindInvalidInput:
		switch {
		case errors.Is(pe.Err, ErrEmptyInput):
			return StatusEmptyInput
		case errors.Is(pe.Err, transcript.ErrNothingToSave):
			return StatusNothingToSave
		}
	}
	return "An error occurred: " + pe.Err.Error()
}
