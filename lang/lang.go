package lang

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownLanguage = errors.New("unknown language")

// Language is one entry of the target language catalog.
type Language struct {
	Name string // Human-readable name shown to the operator
	Code string // Provider language code
}

const DefaultName = "French"

// The catalog order is the order the operator sees.
var catalog = []Language{
	{"French", "fr"},
	{"Spanish", "es"},
	{"German", "de"},
	{"Chinese", "zh-CN"},
	{"Japanese", "ja"},
	{"Russian", "ru"},
	{"Italian", "it"},
	{"Portuguese", "pt"},
	{"Hindi", "hi"},
	{"Arabic", "ar"},
	{"Dutch", "nl"},
	{"Korean", "ko"},
	{"Greek", "el"},
	{"Turkish", "tr"},
	{"Polish", "pl"},
	{"Swedish", "sv"},
	{"Finnish", "fi"},
	{"Norwegian", "no"},
	{"Danish", "da"},
	{"Hebrew", "he"},
	{"Thai", "th"},
	{"Vietnamese", "vi"},
}

// All returns a copy of the catalog.
func All() []Language {
	return append([]Language(nil), catalog...)
}

func Names() []string {
	names := make([]string, len(catalog))
	for i, l := range catalog {
		names[i] = l.Name
	}
	return names
}

func Default() Language {
	l, _ := ByName(DefaultName)
	return l
}

// ByName looks a language up by its display name, ignoring case.
func ByName(name string) (Language, error) {
	name = strings.TrimSpace(name)
	for _, l := range catalog {
		if strings.EqualFold(l.Name, name) {
			return l, nil
		}
	}
	return Language{}, fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
}

// Index returns the catalog position of the named language, or -1.
func Index(name string) int {
	for i, l := range catalog {
		if strings.EqualFold(l.Name, name) {
			return i
		}
	}
	return -1
}

// Step moves through the catalog by delta positions, wrapping at both ends.
func Step(from Language, delta int) Language {
	i := Index(from.Name)
	if i < 0 {
		return Default()
	}
	n := len(catalog)
	return catalog[((i+delta)%n+n)%n]
}
