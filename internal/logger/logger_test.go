package logger

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		l, err := New(env)
		if err != nil {
			t.Fatalf("New(%q): %v", env, err)
		}
		if l == nil {
			t.Fatalf("New(%q) returned nil logger", env)
		}
	}
}

func TestNamedNilBase(t *testing.T) {
	if l := Named(nil, "ledger"); l == nil {
		t.Fatalf("Named(nil) should return a no-op logger")
	}
}

func TestMustPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("Must should panic on error")
		}
	}()
	Must(nil, errors.New("boom"))
}
