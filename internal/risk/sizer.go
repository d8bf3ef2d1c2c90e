package risk

import (
	"fmt"

	"TickSentinel/internal/model"
)

// Sizer decides the notional of a new entry from the available capital.
type Sizer interface {
	Notional(available float64, freeSlots int, vol model.Reading) float64
}

// FixedFraction splits available capital evenly across free slots and
// commits Fraction of one share.
type FixedFraction struct {
	Fraction float64
}

func (f FixedFraction) Notional(available float64, freeSlots int, _ model.Reading) float64 {
	if freeSlots < 1 || available <= 0 {
		return 0
	}
	frac := f.Fraction
	if frac <= 0 || frac > 1 {
		frac = 1
	}
	return available / float64(freeSlots) * frac
}

// InverseVolatility scales one slot share by TargetVol / volatility, capped at MaxFraction.
// Without a volatility reading it commits MaxFraction.
type InverseVolatility struct {
	TargetVol   float64
	MaxFraction float64
}

func (iv InverseVolatility) Notional(available float64, freeSlots int, vol model.Reading) float64 {
	if freeSlots < 1 || available <= 0 {
		return 0
	}
	maxFrac := iv.MaxFraction
	if maxFrac <= 0 || maxFrac > 1 {
		maxFrac = 1
	}
	frac := maxFrac
	if vol.Valid && vol.Value > 0 && iv.TargetVol > 0 {
		if f := iv.TargetVol / vol.Value; f < frac {
			frac = f
		}
	}
	return available / float64(freeSlots) * frac
}

type SizingConfig struct {
	Method      string  `yaml:"method"`
	Fraction    float64 `yaml:"fraction"`
	TargetVol   float64 `yaml:"target_vol"`
	MaxFraction float64 `yaml:"max_fraction"`
}

// NewSizer builds a Sizer from configuration. An empty method means fixed_fraction.
func NewSizer(cfg SizingConfig) (Sizer, error) {
	switch cfg.Method {
	case "", "fixed_fraction":
		return FixedFraction{Fraction: cfg.Fraction}, nil
	case "inverse_volatility":
		if cfg.TargetVol <= 0 {
			return nil, fmt.Errorf("inverse_volatility sizing requires target_vol > 0")
		}
		return InverseVolatility{TargetVol: cfg.TargetVol, MaxFraction: cfg.MaxFraction}, nil
	default:
		return nil, fmt.Errorf("unknown sizing method %q", cfg.Method)
	}
}
