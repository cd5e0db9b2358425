package translate

import (
	"context"
	"errors"
	"strings"
)

// Auto asks the provider to detect the source language.
const Auto = "auto"

var ErrEmptyTranslation = errors.New("translator returned no text")

// Translator converts text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

func clean(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyTranslation
	}
	return s, nil
}
