package analytics

import (
	"math"
	"sort"
	"time"

	"macroNewsBot/internal/domain"
)

// PerformanceMetrics holds the aggregate statistics for a set of trade records.
type PerformanceMetrics struct {
	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	WinRate       float64 `json:"winRate"`
	TotalProfit   float64 `json:"totalProfit"`
	AverageWin    float64 `json:"averageWin"`
	AverageLoss   float64 `json:"averageLoss"`
	ProfitFactor  float64 `json:"profitFactor"`
	MaxDrawdown   float64 `json:"maxDrawdown"`
	SharpeRatio   float64 `json:"sharpeRatio"`
	SortinoRatio  float64 `json:"sortinoRatio"`

	AverageTradeDuration time.Duration `json:"averageTradeDurationNs"`
	NoMovementExits      int           `json:"noMovementExits"`

	// Per indicator family (CPI, GDP, ...): how often a release moved the
	// market enough to trade, and how those trades resolved.
	ByIndicator map[string]IndicatorStats `json:"byIndicator"`
}

// IndicatorStats aggregates outcomes for one indicator family.
type IndicatorStats struct {
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	SuccessRate float64 `json:"successRate"` // P(win | traded)
	FailureRate float64 `json:"failureRate"` // P(loss | traded)
	TotalProfit float64 `json:"totalProfit"`
	AvgImpact   float64 `json:"avgImpact"` // Mean |exit-entry| move per trade, in price units
}

// AnalyzePerformance aggregates a backtest's trade records into win/loss
// counts, risk-adjusted return ratios and per-indicator probabilities. The
// input order does not matter; trades are sorted by entry time first.
func AnalyzePerformance(trades []*domain.TradeResult, initialBalance float64) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		ByIndicator: make(map[string]IndicatorStats),
	}
	if len(trades) == 0 {
		return metrics
	}

	sorted := make([]*domain.TradeResult, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].EntryTime.Before(sorted[j].EntryTime)
	})

	balance := initialBalance
	peak := initialBalance
	returns := make([]float64, 0, len(sorted))
	var totalDuration time.Duration

	for _, trade := range sorted {
		metrics.TotalTrades++
		if trade.IsWin() {
			metrics.WinningTrades++
			metrics.AverageWin = (metrics.AverageWin*float64(metrics.WinningTrades-1) + trade.ProfitOrLoss) / float64(metrics.WinningTrades)
		} else {
			metrics.LosingTrades++
			metrics.AverageLoss = (metrics.AverageLoss*float64(metrics.LosingTrades-1) + trade.ProfitOrLoss) / float64(metrics.LosingTrades)
		}
		if trade.CloseReason == domain.CloseReasonNoMovement {
			metrics.NoMovementExits++
		}

		metrics.TotalProfit += trade.ProfitOrLoss
		if balance > 0 {
			returns = append(returns, trade.ProfitOrLoss/balance)
		}
		balance += trade.ProfitOrLoss
		if balance > peak {
			peak = balance
		} else if peak > 0 {
			drawdown := (peak - balance) / peak
			if drawdown > metrics.MaxDrawdown {
				metrics.MaxDrawdown = drawdown
			}
		}

		totalDuration += trade.Duration()

		stats := metrics.ByIndicator[trade.Indicator]
		stats.Trades++
		if trade.IsWin() {
			stats.Wins++
		} else {
			stats.Losses++
		}
		stats.TotalProfit += trade.ProfitOrLoss
		stats.AvgImpact = (stats.AvgImpact*float64(stats.Trades-1) + math.Abs(trade.ExitPrice-trade.EntryPrice)) / float64(stats.Trades)
		metrics.ByIndicator[trade.Indicator] = stats
	}

	metrics.WinRate = float64(metrics.WinningTrades) / float64(metrics.TotalTrades)
	if metrics.AverageLoss != 0 {
		metrics.ProfitFactor = metrics.AverageWin / -metrics.AverageLoss
	}
	metrics.AverageTradeDuration = totalDuration / time.Duration(len(sorted))
	metrics.SharpeRatio = sharpeRatio(returns)
	metrics.SortinoRatio = sortinoRatio(returns)

	for name, stats := range metrics.ByIndicator {
		if stats.Trades > 0 {
			stats.SuccessRate = float64(stats.Wins) / float64(stats.Trades)
			stats.FailureRate = float64(stats.Losses) / float64(stats.Trades)
		}
		metrics.ByIndicator[name] = stats
	}

	return metrics
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sharpeRatio computes mean return over the standard deviation of returns,
// assuming a risk-free rate of zero.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	var variance float64
	for _, r := range returns {
		variance += (r - m) * (r - m)
	}
	variance /= float64(len(returns) - 1)
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}
	return m / stdDev
}

// sortinoRatio is the Sharpe variant that only penalizes downside deviation.
func sortinoRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	var downside float64
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	downside = math.Sqrt(downside / float64(len(returns)))
	if downside == 0 {
		return 0
	}
	return m / downside
}
