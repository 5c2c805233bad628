package backtesting

import (
	"fmt"
	"time"

	"macroNewsBot/internal/domain"
	"macroNewsBot/internal/ports"
)

// defaultGracePeriod is how long a position may sit without a favorable move
// past the return threshold before the no-movement exit closes it.
const defaultGracePeriod = 10 * time.Second

// SimulatorConfig holds the exit-rule parameters shared by every simulated event.
type SimulatorConfig struct {
	BaseAmount         float64       // Notional per leverage unit
	StopLossPct        float64       // Adverse move closing the position, e.g. 0.002
	TakeProfitPct      float64       // Favorable move closing the position, e.g. 0.02
	ReturnThresholdPct float64       // Minimum favorable move to dodge the no-movement exit
	GracePeriod        time.Duration // Window for the no-movement exit; defaults to 10s
}

// Simulator replays one event's post-release bars against the stop-loss /
// take-profit / timeout exit rules and emits a single trade record.
type Simulator struct {
	cfg    SimulatorConfig
	logger ports.Logger
}

// NewSimulator creates a position simulator.
func NewSimulator(cfg SimulatorConfig, logger ports.Logger) (*Simulator, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for simulator")
	}
	if cfg.BaseAmount <= 0 {
		return nil, fmt.Errorf("%w: BaseAmount must be positive", ports.ErrConfigurationError)
	}
	if cfg.StopLossPct <= 0 || cfg.StopLossPct >= 1 {
		return nil, fmt.Errorf("%w: StopLossPct must be between 0 and 1", ports.ErrConfigurationError)
	}
	if cfg.TakeProfitPct <= 0 || cfg.TakeProfitPct >= 1 {
		return nil, fmt.Errorf("%w: TakeProfitPct must be between 0 and 1", ports.ErrConfigurationError)
	}
	if cfg.ReturnThresholdPct <= 0 || cfg.ReturnThresholdPct >= cfg.TakeProfitPct {
		return nil, fmt.Errorf("%w: ReturnThresholdPct must be positive and below TakeProfitPct", ports.ErrConfigurationError)
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = defaultGracePeriod
	}
	return &Simulator{cfg: cfg, logger: logger}, nil
}

// exitRule is the per-position state machine: Open until one of the exit
// conditions fires, then terminal. Take-profit is checked before stop-loss
// when both levels are touched inside a single bar; that ordering is a
// deliberate tie-break policy, mirrored for shorts.
type exitRule struct {
	short     bool
	target    float64
	stop      float64
	retLine   float64
	grace     time.Duration
	maxHold   time.Duration
	entryTime time.Time
	crossed   bool // return threshold crossed in the favorable direction
}

type exitPoint struct {
	price  float64
	reason domain.CloseReason
}

func (s *Simulator) newRule(lev domain.LeverageResult, entryPrice float64, entryTime time.Time, maxHold time.Duration) *exitRule {
	r := &exitRule{
		short:     lev.Direction == domain.Short,
		grace:     s.cfg.GracePeriod,
		maxHold:   maxHold,
		entryTime: entryTime,
	}
	if r.short {
		r.target = entryPrice * (1 - s.cfg.TakeProfitPct)
		r.stop = entryPrice * (1 + s.cfg.StopLossPct)
		r.retLine = entryPrice * (1 - s.cfg.ReturnThresholdPct)
	} else {
		r.target = entryPrice * (1 + s.cfg.TakeProfitPct)
		r.stop = entryPrice * (1 - s.cfg.StopLossPct)
		r.retLine = entryPrice * (1 + s.cfg.ReturnThresholdPct)
	}
	return r
}

// eval applies the exit conditions to one bar, in order: take-profit touch,
// stop-loss touch, no-movement grace timeout, hard max-hold timeout.
func (r *exitRule) eval(bar domain.PriceBar) (exitPoint, bool) {
	if r.short {
		if bar.Low <= r.target {
			return exitPoint{price: r.target, reason: domain.CloseReasonTakeProfit}, true
		}
		if bar.High >= r.stop {
			return exitPoint{price: r.stop, reason: domain.CloseReasonStopLoss}, true
		}
		if bar.Low <= r.retLine {
			r.crossed = true
		}
	} else {
		if bar.High >= r.target {
			return exitPoint{price: r.target, reason: domain.CloseReasonTakeProfit}, true
		}
		if bar.Low <= r.stop {
			return exitPoint{price: r.stop, reason: domain.CloseReasonStopLoss}, true
		}
		if bar.High >= r.retLine {
			r.crossed = true
		}
	}

	held := bar.Timestamp.Sub(r.entryTime)
	if held >= r.grace && !r.crossed {
		return exitPoint{price: bar.Close, reason: domain.CloseReasonNoMovement}, true
	}
	if r.maxHold > 0 && held >= r.maxHold {
		return exitPoint{price: bar.Close, reason: domain.CloseReasonMaxHold}, true
	}
	return exitPoint{}, false
}

// StopCondition returns the predicate handed to the bar stream so it stops
// reading as soon as the position would have exited. The rule is built lazily
// from the first bar, whose open is the entry price.
func (s *Simulator) StopCondition(lev domain.LeverageResult, maxHold time.Duration) StopCondition {
	var rule *exitRule
	return func(bar domain.PriceBar, entryPrice float64) bool {
		if rule == nil {
			rule = s.newRule(lev, entryPrice, bar.Timestamp, maxHold)
		}
		_, done := rule.eval(bar)
		return done
	}
}

// Simulate replays the collected bars for one event and emits the trade
// record. Returns nil when no entry bar was available (the caller skips the
// event). The bars must start at the entry bar; the stream guarantees that.
func (s *Simulator) Simulate(event *domain.IndicatorEvent, lev domain.LeverageResult, bars []domain.PriceBar, entryPrice float64, maxHold time.Duration) *domain.TradeResult {
	if len(bars) == 0 || entryPrice == 0 {
		return nil
	}

	entryTime := bars[0].Timestamp
	rule := s.newRule(lev, entryPrice, entryTime, maxHold)

	exit := exitPoint{price: bars[len(bars)-1].Close, reason: domain.CloseReasonDataEnd}
	exitTime := bars[len(bars)-1].Timestamp
	for _, bar := range bars {
		if p, done := rule.eval(bar); done {
			exit = p
			exitTime = bar.Timestamp
			break
		}
	}

	quantity := s.cfg.BaseAmount * float64(lev.Magnitude()) / entryPrice
	pnl := (exit.price - entryPrice) * quantity
	if rule.short {
		pnl = -pnl
	}

	action := "buy"
	if rule.short {
		action = "sell"
	}
	if exit.reason == domain.CloseReasonNoMovement {
		action += " (closed - no movement)"
	}

	return &domain.TradeResult{
		Event:        event.ID,
		Indicator:    event.Indicator,
		Action:       action,
		EntryTime:    entryTime,
		ExitTime:     exitTime,
		EntryPrice:   entryPrice,
		ExitPrice:    exit.price,
		ProfitOrLoss: pnl,
		Quantity:     quantity,
		Leverage:     lev.Leverage,
		CloseReason:  exit.reason,
	}
}
