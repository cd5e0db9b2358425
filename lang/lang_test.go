package lang

import (
	"errors"
	"testing"
)

func TestCatalog(t *testing.T) {
	if got := len(All()); got != 22 {
		t.Fatalf("len(All()) = %d, want 22", got)
	}

	seen := make(map[string]bool)
	for _, l := range All() {
		if seen[l.Name] {
			t.Errorf("duplicate language %q", l.Name)
		}
		seen[l.Name] = true
		if l.Code == "" {
			t.Errorf("language %q has no code", l.Name)
		}
	}
}

func TestDefault(t *testing.T) {
	d := Default()
	if d.Name != "French" || d.Code != "fr" {
		t.Errorf("Default() = %+v, want French/fr", d)
	}
}

func TestByName(t *testing.T) {
	t.Run("Case Insensitive", func(t *testing.T) {
		l, err := ByName("  chinese ")
		if err != nil {
			t.Fatalf("ByName() error = %v", err)
		}
		if l.Code != "zh-CN" {
			t.Errorf("ByName(chinese).Code = %q, want %q", l.Code, "zh-CN")
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := ByName("Klingon")
		if !errors.Is(err, ErrUnknownLanguage) {
			t.Errorf("ByName(Klingon) error = %v, want ErrUnknownLanguage", err)
		}
	})
}

func TestAllIsACopy(t *testing.T) {
	langs := All()
	langs[0].Code = "xx"
	if Default().Code != "fr" {
		t.Errorf("mutating All() leaked into the catalog")
	}
}

func TestStep(t *testing.T) {
	first := All()[0]
	last := All()[len(All())-1]

	if got := Step(first, -1); got != last {
		t.Errorf("Step(first, -1) = %+v, want %+v", got, last)
	}
	if got := Step(last, 1); got != first {
		t.Errorf("Step(last, 1) = %+v, want %+v", got, first)
	}
	if got := Step(Language{Name: "nope"}, 1); got != Default() {
		t.Errorf("Step(unknown) = %+v, want default", got)
	}
}
