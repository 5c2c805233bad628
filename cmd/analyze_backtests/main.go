package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"macroNewsBot/internal/domain"
	"macroNewsBot/internal/strategy/analytics"
	"macroNewsBot/internal/utils"
)

func main() {
	var (
		dir            = flag.String("dir", "data", "directory holding backtest trade files")
		prefix         = flag.String("prefix", "backtest_trades", "trade file name prefix")
		statsOut       = flag.String("stats-out", "", "optional path for a stats JSON of the best run")
		initialBalance = flag.Float64("balance", 1000000, "starting balance for the performance analysis")
	)
	flag.Parse()

	files, err := findBacktestFiles(*dir, *prefix)
	if err != nil {
		log.Fatalf("Error finding backtest files: %v", err)
	}
	if len(files) == 0 {
		log.Println("No backtest files found. Run the backtest runner first.")
		return
	}

	// Create a tabwriter for formatted output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "File\tTrades\tWinRate\tAvgWin\tAvgLoss\tTotalPnL\tMaxDD\tSharpe\tNoMove\tTP%\t")

	var bestMetrics *analytics.PerformanceMetrics
	var bestFile string
	for _, file := range files {
		trades, err := utils.ReadTradesFromJSON(file)
		if err != nil {
			log.Printf("Error reading trades from %s: %v", file, err)
			continue
		}

		metrics := analytics.AnalyzePerformance(trades, *initialBalance)
		tp := extractTPFromFilename(file)

		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.4f\t%.4f\t%d\t%.2f\t\n",
			filepath.Base(file),
			metrics.TotalTrades,
			metrics.WinRate*100,
			metrics.AverageWin,
			metrics.AverageLoss,
			metrics.TotalProfit,
			metrics.MaxDrawdown,
			metrics.SharpeRatio,
			metrics.NoMovementExits,
			tp,
		)

		if bestMetrics == nil || metrics.TotalProfit > bestMetrics.TotalProfit {
			bestMetrics = metrics
			bestFile = file
		}
	}
	w.Flush()

	fmt.Println("\n## Per-Indicator Analysis")
	analyzeByIndicator(files, *initialBalance)

	fmt.Println("\n## Exit Reason Analysis")
	analyzeExitReasons(files)

	if *statsOut != "" && bestMetrics != nil {
		if err := utils.WriteStatsToJSON(bestMetrics, *statsOut); err != nil {
			log.Fatalf("Error writing stats JSON: %v", err)
		}
		fmt.Printf("\nStats for best run (%s) written to %s\n", filepath.Base(bestFile), *statsOut)
	}
}

// analyzeByIndicator prints how each indicator family performed per file.
func analyzeByIndicator(files []string, initialBalance float64) {
	for _, file := range files {
		trades, err := utils.ReadTradesFromJSON(file)
		if err != nil {
			log.Printf("Error reading trades from %s: %v", file, err)
			continue
		}
		metrics := analytics.AnalyzePerformance(trades, initialBalance)

		fmt.Printf("\nFile: %s\n", filepath.Base(file))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
		fmt.Fprintln(w, "Indicator\tTrades\tWins\tLosses\tSuccess\tTotal PnL\tAvg Impact\t")

		names := make([]string, 0, len(metrics.ByIndicator))
		for name := range metrics.ByIndicator {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			stats := metrics.ByIndicator[name]
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2f\t%.2f\t%.2f\t\n",
				name, stats.Trades, stats.Wins, stats.Losses,
				stats.SuccessRate*100, stats.TotalProfit, stats.AvgImpact)
		}
		w.Flush()
	}
}

// analyzeExitReasons breaks trades down by how the position was closed.
func analyzeExitReasons(files []string) {
	for _, file := range files {
		trades, err := utils.ReadTradesFromJSON(file)
		if err != nil {
			log.Printf("Error reading trades from %s: %v", file, err)
			continue
		}

		closeReasonCounts := make(map[domain.CloseReason]int)
		closeReasonPnL := make(map[domain.CloseReason]float64)
		for _, trade := range trades {
			closeReasonCounts[trade.CloseReason]++
			closeReasonPnL[trade.CloseReason] += trade.ProfitOrLoss
		}

		fmt.Printf("\nFile: %s\n", filepath.Base(file))
		fmt.Println("Close Reason\tCount\tTotal PnL\tAvg PnL")

		// Sort reasons for consistent output
		var reasons []domain.CloseReason
		for reason := range closeReasonCounts {
			reasons = append(reasons, reason)
		}
		sort.Slice(reasons, func(i, j int) bool {
			return string(reasons[i]) < string(reasons[j])
		})

		for _, reason := range reasons {
			count := closeReasonCounts[reason]
			totalPnL := closeReasonPnL[reason]
			avgPnL := 0.0
			if count > 0 {
				avgPnL = totalPnL / float64(count)
			}
			fmt.Printf("%s\t%d\t%.2f\t%.2f\n", reason, count, totalPnL, avgPnL)
		}
	}
}

// findBacktestFiles finds all backtest trade files in the specified directory
func findBacktestFiles(dir, prefix string) ([]string, error) {
	var files []string

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) && strings.HasSuffix(entry.Name(), ".json") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	// Sort files by TP value
	sort.Slice(files, func(i, j int) bool {
		return extractTPFromFilename(files[i]) < extractTPFromFilename(files[j])
	})

	return files, nil
}

// extractTPFromFilename extracts the TP value from a filename
// e.g., backtest_trades_tp1.5.json -> 1.5
func extractTPFromFilename(filename string) float64 {
	base := filepath.Base(filename)
	parts := strings.Split(base, "_tp")
	if len(parts) < 2 {
		return 0
	}

	tpStr := strings.TrimSuffix(parts[1], ".json")
	var tp float64
	fmt.Sscanf(tpStr, "%f", &tp)
	return tp
}
