package backtesting

import (
	"context"
	"fmt"
	"time"

	"macroNewsBot/internal/domain"
	"macroNewsBot/internal/ports"
	"macroNewsBot/internal/strategy"
)

// Config holds configuration for one backtest run.
type Config struct {
	PriceFile       string            // Path to the second-resolution price CSV
	Indicators      strategy.Registry // Per-indicator thresholds and offsets
	BaseAmount      float64           // Notional per leverage unit
	MaxPositionSize float64           // Caps leverage at floor(MaxPositionSize/BaseAmount)
	Simulator       SimulatorConfig
}

// Result accumulates the trades and skip counters for a full run. The trade
// set is complete even when individual events were skipped, so a harness can
// always inspect a whole run's output.
type Result struct {
	Trades      []*domain.TradeResult
	DeadZone    int // Events whose surprise rounded to zero leverage
	Unpublished int // Events with no actual value in the dataset
	NoHistory   int // Events preceding the stored price history
	NoEntryBar  int // Events with no bar at or after the release time
}

// Runner replays every historical event against the price series: locate the
// release offset, stream the post-release bars, simulate the position, record
// the trade. Events are processed strictly sequentially.
type Runner struct {
	cfg    Config
	logger ports.Logger
	sim    *Simulator
	maxLev int
}

// NewRunner creates a backtest runner.
func NewRunner(cfg Config, logger ports.Logger) (*Runner, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for backtest runner")
	}
	if cfg.PriceFile == "" {
		return nil, fmt.Errorf("%w: PriceFile must be set", ports.ErrConfigurationError)
	}
	if len(cfg.Indicators) == 0 {
		return nil, fmt.Errorf("%w: indicator registry is empty", ports.ErrConfigurationError)
	}
	for name, p := range cfg.Indicators {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("indicator %q: %w", name, err)
		}
	}
	cfg.Simulator.BaseAmount = cfg.BaseAmount
	sim, err := NewSimulator(cfg.Simulator, logger)
	if err != nil {
		return nil, err
	}
	maxLev := strategy.MaxLeverage(cfg.MaxPositionSize, cfg.BaseAmount)
	if maxLev < 1 {
		return nil, fmt.Errorf("%w: MaxPositionSize must cover at least one BaseAmount", ports.ErrConfigurationError)
	}
	return &Runner{cfg: cfg, logger: logger, sim: sim, maxLev: maxLev}, nil
}

// Run executes the backtest over the full event set. An event referencing an
// indicator missing from the registry is a configuration error and fails the
// whole run up front rather than silently dropping events.
func (r *Runner) Run(ctx context.Context, events []*domain.IndicatorEvent) (*Result, error) {
	for _, ev := range events {
		if _, err := r.cfg.Indicators.Lookup(ev.Indicator); err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.ID, err)
		}
	}

	result := &Result{}
	for _, ev := range events {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}
		trade, err := r.runEvent(ctx, ev, result)
		if err != nil {
			return result, err
		}
		if trade != nil {
			result.Trades = append(result.Trades, trade)
		}
	}
	r.logger.Info(ctx, "Backtest run complete", map[string]interface{}{
		"events":      len(events),
		"trades":      len(result.Trades),
		"deadZone":    result.DeadZone,
		"unpublished": result.Unpublished,
		"noHistory":   result.NoHistory,
	})
	return result, nil
}

func (r *Runner) runEvent(ctx context.Context, ev *domain.IndicatorEvent, result *Result) (*domain.TradeResult, error) {
	params, _ := r.cfg.Indicators.Lookup(ev.Indicator) // validated in Run

	if !ev.Published() {
		r.logger.Warn(ctx, "Event has no actual value, skipping", map[string]interface{}{"event": ev.ID})
		result.Unpublished++
		return nil, nil
	}

	lev := strategy.Decide(*ev.Actual, params, r.maxLev)
	if lev.NoTrade() {
		r.logger.Info(ctx, "No action, inside threshold band", map[string]interface{}{
			"event":     ev.ID,
			"actual":    *ev.Actual,
			"threshold": params.Threshold,
		})
		result.DeadZone++
		return nil, nil
	}

	offset, err := Locate(r.cfg.PriceFile, ev.ReleaseTime)
	if err != nil {
		return nil, fmt.Errorf("locating release time for event %s: %w", ev.ID, err)
	}
	if offset == 0 {
		r.logger.Warn(ctx, "Event precedes stored price history, skipping", map[string]interface{}{
			"event":   ev.ID,
			"release": ev.ReleaseTime.Format(time.RFC3339),
		})
		result.NoHistory++
		return nil, nil
	}

	bars, entryPrice, err := CollectBars(r.cfg.PriceFile, offset, ev.ReleaseTime, r.sim.StopCondition(lev, params.MaxHold))
	if err != nil {
		return nil, fmt.Errorf("streaming bars for event %s: %w", ev.ID, err)
	}

	trade := r.sim.Simulate(ev, lev, bars, entryPrice, params.MaxHold)
	if trade == nil {
		r.logger.Warn(ctx, "No entry bar at or after release time, skipping", map[string]interface{}{"event": ev.ID})
		result.NoEntryBar++
		return nil, nil
	}
	r.logger.Info(ctx, "Simulated trade", map[string]interface{}{
		"event":    ev.ID,
		"action":   trade.Action,
		"leverage": trade.Leverage,
		"entry":    trade.EntryPrice,
		"exit":     trade.ExitPrice,
		"pnl":      trade.ProfitOrLoss,
		"reason":   string(trade.CloseReason),
	})
	return trade, nil
}
