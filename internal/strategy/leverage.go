package strategy

import (
	"fmt"
	"math"
	"time"

	"macroNewsBot/internal/domain"
	"macroNewsBot/internal/ports"
)

// Params holds the per-indicator constants converting a release value into
// leverage units. CPI, GDP, PCE, NFP and FOMC differ only in these constants
// and in which observed value feeds the decision.
type Params struct {
	Threshold float64       // Expected/consensus value the release is compared against
	Offset    float64       // Scaling constant: one leverage unit per Offset of surprise
	Direct    bool          // True when a value above threshold means long; every indicator here is inverse
	MaxHold   time.Duration // Hard holding-time limit for a position, 0 disables
}

// Validate checks the params are usable. A zero offset would divide the
// surprise away and is always a configuration mistake.
func (p Params) Validate() error {
	if p.Offset == 0 {
		return fmt.Errorf("%w: indicator offset must be non-zero", ports.ErrConfigurationError)
	}
	return nil
}

// Registry maps an indicator selector (e.g. "CPI") to its decision params.
type Registry map[string]Params

// Lookup resolves the params for an indicator selector.
func (r Registry) Lookup(indicator string) (Params, error) {
	p, ok := r[indicator]
	if !ok {
		return Params{}, fmt.Errorf("%w: %q", ports.ErrUnknownIndicator, indicator)
	}
	return p, nil
}

// MaxLeverage derives the leverage cap from the sizing limits:
// floor(maxPositionSize / baseAmount).
func MaxLeverage(maxPositionSize, baseAmount float64) int {
	if baseAmount <= 0 {
		return 0
	}
	return int(math.Floor(maxPositionSize / baseAmount))
}

// Decide maps an observed indicator value to a signed integer leverage and a
// direction. The raw leverage (value-threshold)/offset is truncated toward
// zero, clamped to [-maxLeverage, maxLeverage], and negated for inverse
// indicators. A result of 0 is the dead zone: the surprise is treated as
// noise and no trade is placed.
func Decide(value float64, p Params, maxLeverage int) domain.LeverageResult {
	raw := (value - p.Threshold) / p.Offset

	// A surprise of exactly N offsets must land on N units, but the division
	// can come out just under the integer (0.2/0.2 sums of decimals are not
	// exact in binary). Nudge toward the boundary before truncating.
	if raw != 0 {
		raw += math.Copysign(1e-9, raw)
	}

	// sign(x) * floor(|x|)
	truncated := math.Trunc(raw)

	capped := false
	if truncated > float64(maxLeverage) {
		truncated = float64(maxLeverage)
		capped = true
	} else if truncated < -float64(maxLeverage) {
		truncated = -float64(maxLeverage)
		capped = true
	}

	leverage := int(truncated)
	if !p.Direct {
		leverage = -leverage
	}

	direction := domain.Long
	if leverage < 0 {
		direction = domain.Short
	}

	return domain.LeverageResult{
		Leverage:    leverage,
		Direction:   direction,
		CappedAtMax: capped,
	}
}
