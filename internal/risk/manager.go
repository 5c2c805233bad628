package risk

import (
	"fmt"
	"math"

	"macroNewsBot/internal/domain"
)

// notionalTolerance is the relative slack allowed when comparing a position's
// notional against the configured cap.
const notionalTolerance = 1e-9

// Config holds the pre-trade guard limits applied before any live order is
// placed. These are coarse account-level protections sitting above the
// per-event leverage decision.
type Config struct {
	MaxPositionSize float64 // Maximum notional (quote units) of one position
	MaxLeverage     int     // Hard cap on leverage magnitude
	MaxDailyTrades  int     // Maximum trades entered per calendar day
	MaxDailyLoss    float64 // Fraction of account balance that may be lost in one day
	StopLossPct     float64
	TakeProfitPct   float64
}

// Manager validates prospective positions against the configured limits and
// tracks realized daily outcomes.
type Manager struct {
	cfg   Config
	stats Stats
}

// Stats holds the running counters the guards evaluate against.
type Stats struct {
	DailyPnL    float64
	DailyTrades int
}

// NewManager creates a risk manager.
func NewManager(cfg Config) *Manager {
	if cfg.MaxDailyTrades <= 0 {
		cfg.MaxDailyTrades = 100
	}
	return &Manager{cfg: cfg}
}

// ValidatePosition checks whether a prospective position is within limits.
// The position carries the signed leverage decided for the event; notional
// is quantity times entry price.
func (m *Manager) ValidatePosition(pos *domain.Position, accountBalance float64) error {
	// A position sized exactly at the cap (quantity derived as
	// baseAmount*|lev|/price, notional recomputed as quantity*price) picks up
	// rounding in the last bit; the comparison must not reject it.
	notional := pos.Quantity * pos.EntryPrice
	if notional > m.cfg.MaxPositionSize*(1+notionalTolerance) {
		return fmt.Errorf("position notional %.2f exceeds maximum allowed %.2f", notional, m.cfg.MaxPositionSize)
	}

	levMagnitude := pos.Leverage
	if levMagnitude < 0 {
		levMagnitude = -levMagnitude
	}
	if m.cfg.MaxLeverage > 0 && levMagnitude > m.cfg.MaxLeverage {
		return fmt.Errorf("leverage magnitude %d exceeds maximum allowed %d", levMagnitude, m.cfg.MaxLeverage)
	}

	if m.stats.DailyTrades >= m.cfg.MaxDailyTrades {
		return fmt.Errorf("daily trades %d reached maximum allowed %d", m.stats.DailyTrades, m.cfg.MaxDailyTrades)
	}

	// Worst case for this position is the full stop-loss distance.
	potentialLoss := notional * m.cfg.StopLossPct
	if m.cfg.MaxDailyLoss > 0 && m.stats.DailyPnL-potentialLoss < -m.cfg.MaxDailyLoss*accountBalance {
		return fmt.Errorf("potential daily loss would exceed maximum allowed %.2f", m.cfg.MaxDailyLoss*accountBalance)
	}

	return nil
}

// RecordEntry counts a newly opened position against the daily trade limit.
func (m *Manager) RecordEntry() {
	m.stats.DailyTrades++
}

// RecordClose folds a closed position's PnL into the daily counters.
func (m *Manager) RecordClose(pnl float64) {
	m.stats.DailyPnL += pnl
}

// ResetDailyStats clears the daily counters at the day boundary.
func (m *Manager) ResetDailyStats() {
	m.stats = Stats{}
}

// StopLossPrice returns the stop level for an entry at the given price.
// A short position's stop sits above the entry.
func (m *Manager) StopLossPrice(entryPrice float64, short bool) float64 {
	if short {
		return entryPrice * (1 + m.cfg.StopLossPct)
	}
	return entryPrice * (1 - m.cfg.StopLossPct)
}

// TakeProfitPrice returns the target level for an entry at the given price.
func (m *Manager) TakeProfitPrice(entryPrice float64, short bool) float64 {
	if short {
		return entryPrice * (1 - m.cfg.TakeProfitPct)
	}
	return entryPrice * (1 + m.cfg.TakeProfitPct)
}

// CheckDailyLimits reports whether the daily loss or trade-count limit has
// already been breached, independent of any prospective position.
func (m *Manager) CheckDailyLimits(accountBalance float64) error {
	if m.cfg.MaxDailyLoss > 0 && m.stats.DailyPnL < -m.cfg.MaxDailyLoss*accountBalance {
		return fmt.Errorf("daily loss %.2f exceeds maximum allowed %.2f", math.Abs(m.stats.DailyPnL), m.cfg.MaxDailyLoss*accountBalance)
	}
	if m.stats.DailyTrades >= m.cfg.MaxDailyTrades {
		return fmt.Errorf("daily trades %d reached maximum allowed %d", m.stats.DailyTrades, m.cfg.MaxDailyTrades)
	}
	return nil
}

// GetStats returns a copy of the current daily counters.
func (m *Manager) GetStats() Stats {
	return m.stats
}
