package factory

import (
	"errors"
	"testing"

	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/strategy"
)

func TestNewKnownStrategies(t *testing.T) {
	for _, code := range Codes() {
		strat, err := New(code, nil)
		if err != nil {
			t.Fatalf("New(%q) error: %v", code, err)
		}
		if strat.Name() != code {
			t.Errorf("New(%q).Name() = %q", code, strat.Name())
		}
		_, isSignaler := strat.(strategy.Signaler)
		_, isSelector := strat.(strategy.Selector)
		if !isSignaler && !isSelector {
			t.Errorf("strategy %q implements neither Signaler nor Selector", code)
		}
	}
}

func TestNewUnknownStrategy(t *testing.T) {
	_, err := New("nope", nil)
	if err == nil {
		t.Fatal("New with unknown code should fail")
	}
	if !errors.Is(err, core.ErrUnknownStrategy) {
		t.Errorf("error = %v, want ErrUnknownStrategy", err)
	}
}
