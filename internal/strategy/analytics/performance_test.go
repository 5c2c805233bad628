package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macroNewsBot/internal/domain"
)

func tradeAt(indicator string, entry time.Time, hold time.Duration, entryPrice, exitPrice, pnl float64, reason domain.CloseReason) *domain.TradeResult {
	return &domain.TradeResult{
		Event:        indicator + "-" + entry.Format("2006-01"),
		Indicator:    indicator,
		Action:       "sell",
		EntryTime:    entry,
		ExitTime:     entry.Add(hold),
		EntryPrice:   entryPrice,
		ExitPrice:    exitPrice,
		ProfitOrLoss: pnl,
		Quantity:     10,
		Leverage:     -5,
		CloseReason:  reason,
	}
}

func TestAnalyzePerformance_Empty(t *testing.T) {
	metrics := AnalyzePerformance(nil, 1000000)
	assert.Equal(t, 0, metrics.TotalTrades)
	assert.NotNil(t, metrics.ByIndicator)
}

func TestAnalyzePerformance_Aggregates(t *testing.T) {
	base := time.Date(2024, 1, 10, 13, 30, 0, 0, time.UTC)
	trades := []*domain.TradeResult{
		tradeAt("CPI", base, 3*time.Minute, 60000, 58800, 12000, domain.CloseReasonTakeProfit),
		tradeAt("CPI", base.AddDate(0, 1, 0), 1*time.Minute, 61000, 61122, -1220, domain.CloseReasonStopLoss),
		tradeAt("NFP", base.AddDate(0, 2, 0), 12*time.Second, 62000, 62010, 100, domain.CloseReasonNoMovement),
		tradeAt("NFP", base.AddDate(0, 3, 0), 25*time.Minute, 63000, 61740, 12600, domain.CloseReasonMaxHold),
	}

	metrics := AnalyzePerformance(trades, 1000000)

	assert.Equal(t, 4, metrics.TotalTrades)
	assert.Equal(t, 3, metrics.WinningTrades)
	assert.Equal(t, 1, metrics.LosingTrades)
	assert.InDelta(t, 0.75, metrics.WinRate, 1e-9)
	assert.InDelta(t, 23480.0, metrics.TotalProfit, 1e-9)
	assert.InDelta(t, (12000.0+100+12600)/3, metrics.AverageWin, 1e-9)
	assert.InDelta(t, -1220.0, metrics.AverageLoss, 1e-9)
	assert.Greater(t, metrics.ProfitFactor, 1.0)
	assert.Equal(t, 1, metrics.NoMovementExits)

	// One losing trade after a winning one produces a nonzero drawdown
	assert.Greater(t, metrics.MaxDrawdown, 0.0)
	assert.Less(t, metrics.MaxDrawdown, 1.0)

	// Risk-adjusted ratios are positive for a mostly-winning set
	assert.Greater(t, metrics.SharpeRatio, 0.0)
	assert.Greater(t, metrics.SortinoRatio, 0.0)

	wantAvg := (3*time.Minute + 1*time.Minute + 12*time.Second + 25*time.Minute) / 4
	assert.Equal(t, wantAvg, metrics.AverageTradeDuration)
}

func TestAnalyzePerformance_ByIndicator(t *testing.T) {
	base := time.Date(2024, 1, 10, 13, 30, 0, 0, time.UTC)
	trades := []*domain.TradeResult{
		tradeAt("CPI", base, time.Minute, 60000, 58800, 12000, domain.CloseReasonTakeProfit),
		tradeAt("CPI", base.AddDate(0, 1, 0), time.Minute, 61000, 61122, -1220, domain.CloseReasonStopLoss),
		tradeAt("NFP", base.AddDate(0, 2, 0), time.Minute, 63000, 61740, 12600, domain.CloseReasonTakeProfit),
	}

	metrics := AnalyzePerformance(trades, 1000000)
	require.Len(t, metrics.ByIndicator, 2)

	cpi := metrics.ByIndicator["CPI"]
	assert.Equal(t, 2, cpi.Trades)
	assert.Equal(t, 1, cpi.Wins)
	assert.Equal(t, 1, cpi.Losses)
	assert.InDelta(t, 0.5, cpi.SuccessRate, 1e-9)
	assert.InDelta(t, 0.5, cpi.FailureRate, 1e-9)
	assert.InDelta(t, 10780.0, cpi.TotalProfit, 1e-9)
	// Mean |exit-entry|: (1200 + 122) / 2
	assert.InDelta(t, 661.0, cpi.AvgImpact, 1e-9)

	nfp := metrics.ByIndicator["NFP"]
	assert.Equal(t, 1, nfp.Trades)
	assert.InDelta(t, 1.0, nfp.SuccessRate, 1e-9)
}

func TestAnalyzePerformance_OrderIndependent(t *testing.T) {
	base := time.Date(2024, 1, 10, 13, 30, 0, 0, time.UTC)
	forward := []*domain.TradeResult{
		tradeAt("CPI", base, time.Minute, 60000, 58800, 12000, domain.CloseReasonTakeProfit),
		tradeAt("CPI", base.AddDate(0, 1, 0), time.Minute, 61000, 61122, -1220, domain.CloseReasonStopLoss),
		tradeAt("NFP", base.AddDate(0, 2, 0), time.Minute, 63000, 61740, 12600, domain.CloseReasonMaxHold),
	}
	reversed := []*domain.TradeResult{forward[2], forward[0], forward[1]}

	a := AnalyzePerformance(forward, 1000000)
	b := AnalyzePerformance(reversed, 1000000)
	assert.Equal(t, a.TotalProfit, b.TotalProfit)
	assert.Equal(t, a.MaxDrawdown, b.MaxDrawdown)
	assert.Equal(t, a.SharpeRatio, b.SharpeRatio)
}
