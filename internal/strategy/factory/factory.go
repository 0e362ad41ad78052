package factory

import (
	"fmt"

	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/strategy"
	"github.com/newthinker/quantlab/internal/strategy/macross"
	"github.com/newthinker/quantlab/internal/strategy/momentum"
	"github.com/newthinker/quantlab/internal/strategy/valuescreen"
)

// New creates a strategy instance from its wire code and parameters.
// Unknown codes return core.ErrUnknownStrategy.
func New(code string, params strategy.Params) (strategy.Strategy, error) {
	switch code {
	case macross.Code:
		return macross.New(params), nil
	case momentum.Code:
		return momentum.New(params), nil
	case valuescreen.Code:
		return valuescreen.New(params), nil
	default:
		return nil, core.WrapError(core.ErrUnknownStrategy, fmt.Errorf("strategy %q", code))
	}
}

// Codes returns the supported strategy codes.
func Codes() []string {
	return []string{macross.Code, momentum.Code, valuescreen.Code}
}
