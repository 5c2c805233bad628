package app

import (
	"context"
	"errors" // Need for error checking in cancelOrderWarn
	"fmt"
	"os"
	"os/signal"
	"strconv" // Need for formatting quantity/prices
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"macroNewsBot/config"
	"macroNewsBot/internal/domain"
	"macroNewsBot/internal/ports"
	"macroNewsBot/internal/risk"
	"macroNewsBot/internal/strategy"
)

// StrategyService runs one live release: it polls the indicator feed until
// the value is published, maps the surprise to a leverage, opens the
// position and manages its exit orders. One service instance handles one
// release and then stops.
type StrategyService struct {
	cfg       *config.Config
	logger    ports.Logger
	exchange  ports.ExchangeClient
	posRepo   ports.PositionRepository
	tradeRepo ports.TradeRepository
	feed      ports.IndicatorSource
	proxies   ports.ProxyRotation // nil means proxyless
	params    strategy.Params
	riskMgr   *risk.Manager
	maxLev    int

	// executed latches once a published value has been handed to the
	// strategy; ticks observing it set do nothing. This is the sole guard
	// against double execution, so it must be atomic.
	executed atomic.Bool

	// State fields
	mu              sync.Mutex // Protects access to state fields below
	currentPosition *domain.Position
	tradesToday     int
}

// NewStrategyService creates a new application service instance.
func NewStrategyService(
	cfg *config.Config,
	logger ports.Logger,
	exchange ports.ExchangeClient,
	posRepo ports.PositionRepository,
	tradeRepo ports.TradeRepository,
	feed ports.IndicatorSource,
	proxies ports.ProxyRotation,
	params strategy.Params,
) (*StrategyService, error) {

	// Validate dependencies; proxies may be nil (proxyless mode).
	if cfg == nil || logger == nil || exchange == nil || posRepo == nil || tradeRepo == nil || feed == nil {
		return nil, fmt.Errorf("missing required dependencies for StrategyService")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("indicator parameters: %w", err)
	}

	maxLev := strategy.MaxLeverage(cfg.MaxPositionSize, cfg.BaseAmount)
	if maxLev < 1 {
		return nil, fmt.Errorf("%w: MAX_POSITION_SIZE must cover at least one BASE_AMOUNT", ports.ErrConfigurationError)
	}

	riskMgr := risk.NewManager(risk.Config{
		MaxPositionSize: cfg.MaxPositionSize,
		MaxLeverage:     maxLev,
		MaxDailyTrades:  cfg.MaxOrders,
		StopLossPct:     cfg.StopLoss,
		TakeProfitPct:   cfg.TakeProfit,
	})

	return &StrategyService{
		cfg:       cfg,
		logger:    logger,
		exchange:  exchange,
		posRepo:   posRepo,
		tradeRepo: tradeRepo,
		feed:      feed,
		proxies:   proxies,
		params:    params,
		riskMgr:   riskMgr,
		maxLev:    maxLev,
	}, nil
}

// Run begins the polling loop and blocks until the strategy has executed
// (including the position's timed exit, when configured), the single-shot
// attempt came up empty, or the context is cancelled.
func (s *StrategyService) Run(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Strategy Service...", map[string]interface{}{
		"indicator":    s.cfg.Indicator,
		"symbol":       s.cfg.Symbol,
		"maxLeverage":  s.maxLev,
		"pollInterval": s.cfg.PollInterval.String(),
		"singleShot":   s.cfg.SingleShot,
	})

	// Create a context that can be canceled by signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel() // Cancel the main context
		case <-ctx.Done():
		}
	}()

	// --- Initialization Steps ---
	// 1. Set server time (important for API calls)
	if err := s.exchange.SetServerTime(ctx); err != nil {
		s.logger.Error(ctx, err, "Failed to synchronize server time")
		return fmt.Errorf("failed to set server time: %w", err)
	}
	s.logger.Info(ctx, "Server time synchronized")

	// 2. Sync existing position state (if any)
	openPos, err := s.posRepo.FindOpenBySymbol(ctx, s.cfg.Symbol)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to check for existing open position")
		return fmt.Errorf("failed to query open position: %w", err)
	}
	if openPos != nil {
		// The previous run's SL/TP reduce orders are still working on the
		// exchange; refuse to stack a second position on top.
		s.mu.Lock()
		s.currentPosition = openPos
		s.mu.Unlock()
		s.logger.Warn(ctx, "Found existing open position, new entries are blocked", map[string]interface{}{
			"positionID": openPos.ID,
			"entryPrice": openPos.EntryPrice,
			"takeProfit": openPos.TakeProfit,
			"stopLoss":   openPos.StopLoss,
		})
	}

	// 3. Sync the daily trade counter
	tradesCount, err := s.tradeRepo.CountToday(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to count trades for today")
		return fmt.Errorf("failed to count today's trades: %w", err)
	}
	s.mu.Lock()
	s.tradesToday = tradesCount
	s.mu.Unlock()
	s.logger.Info(ctx, "Initial state synchronized", map[string]interface{}{"tradesToday": tradesCount})

	// --- Polling Loop ---
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Context cancelled, stopping polling loop")
			return nil
		case <-ticker.C:
			if s.executed.Load() {
				continue
			}
			value := s.pollOnce(ctx)
			if value == nil {
				if s.cfg.SingleShot {
					s.logger.Info(ctx, "Single-shot fetch returned no value, stopping")
					return nil
				}
				continue
			}
			// Latch before acting so a late tick can never re-execute.
			if !s.executed.CompareAndSwap(false, true) {
				continue
			}
			ticker.Stop()
			s.logger.Info(ctx, "Indicator value published", map[string]interface{}{
				"indicator": s.cfg.Indicator,
				"value":     *value,
			})
			if err := s.executeStrategy(ctx, *value); err != nil {
				s.logger.Error(ctx, err, "Strategy execution failed")
				return err
			}
			s.logger.Info(ctx, "Strategy Service stopped.")
			return nil
		}
	}
}

// pollOnce performs one fetch attempt through the next proxy in the rotation.
// Transport failures are treated as "no value yet" and drive rotation rather
// than abort.
func (s *StrategyService) pollOnce(ctx context.Context) *float64 {
	var proxy *ports.Proxy
	if s.proxies != nil {
		proxy = s.proxies.Next()
	}
	fields := map[string]interface{}{"indicator": s.cfg.Indicator}
	if proxy != nil {
		fields["proxy"] = fmt.Sprintf("%s:%d", proxy.Address, proxy.Port)
	}

	value, err := s.feed.Fetch(ctx, proxy)
	if err != nil {
		s.logger.Warn(ctx, "Indicator fetch failed, will retry on next tick", mergeFields(fields, map[string]interface{}{"error": err.Error()}))
		return nil
	}
	if value == nil {
		s.logger.Debug(ctx, "Indicator value not yet published", fields)
		return nil
	}
	return value
}

// executeStrategy maps the published value to a leverage decision and, when
// outside the dead zone, opens and manages the position. Invoked exactly once
// per run.
func (s *StrategyService) executeStrategy(ctx context.Context, value float64) error {
	lev := strategy.Decide(value, s.params, s.maxLev)
	if lev.NoTrade() {
		s.logger.Info(ctx, "No action, inside threshold band", map[string]interface{}{
			"indicator": s.cfg.Indicator,
			"value":     value,
			"threshold": s.params.Threshold,
		})
		return nil
	}
	s.logger.Info(ctx, "Leverage decided", map[string]interface{}{
		"indicator":   s.cfg.Indicator,
		"value":       value,
		"leverage":    lev.Leverage,
		"direction":   string(lev.Direction),
		"cappedAtMax": lev.CappedAtMax,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if canTradeNow, reason := s.canTrade(); !canTradeNow {
		s.logger.Warn(ctx, "Cannot trade now", map[string]interface{}{"reason": reason})
		return nil
	}

	pos, err := s.enterPosition(ctx, lev)
	if err != nil {
		// Broker failures are logged and surfaced as a failed trade attempt,
		// not a crash of the service.
		s.logger.Error(ctx, err, "Failed to enter position")
		return nil
	}

	return s.holdPosition(ctx, pos)
}

// canTrade checks if the bot is currently allowed to open a new position.
// NOTE: This method assumes the mutex `s.mu` is already locked by the caller.
func (s *StrategyService) canTrade() (bool, string) {
	if s.currentPosition != nil {
		return false, fmt.Sprintf("position %d already open", s.currentPosition.ID)
	}
	if s.tradesToday >= s.cfg.MaxOrders {
		return false, fmt.Sprintf("daily trade limit reached (%d/%d)", s.tradesToday, s.cfg.MaxOrders)
	}
	return true, "" // All checks passed
}

// holdPosition waits out the configured maximum holding time and then force
// closes the position. With no max hold the exit is left entirely to the
// SL/TP reduce orders working on the exchange.
// NOTE: assumes the mutex `s.mu` is already locked by the caller.
func (s *StrategyService) holdPosition(ctx context.Context, pos *domain.Position) error {
	if s.params.MaxHold <= 0 {
		s.logger.Info(ctx, "No max holding time configured, exit left to exchange orders", map[string]interface{}{"positionID": pos.ID})
		return nil
	}

	s.logger.Info(ctx, "Holding position until timed exit", map[string]interface{}{
		"positionID": pos.ID,
		"maxHold":    s.params.MaxHold.String(),
	})
	timer := time.NewTimer(s.params.MaxHold)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		// Shutdown mid-hold: the SL/TP orders remain active on the
		// exchange, so the position is left open rather than dumped.
		s.logger.Warn(ctx, "Shutdown while holding position, leaving exit orders active", map[string]interface{}{"positionID": pos.ID})
		return nil
	case <-timer.C:
	}

	if err := s.closePosition(ctx, domain.CloseReasonMaxHold); err != nil {
		s.logger.Error(ctx, err, "Failed to close position at max holding time", map[string]interface{}{"positionID": pos.ID})
		return nil
	}
	return nil
}

// formatPrice formats a float64 price into a string suitable for the Binance API.
func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}

// formatQuantity formats a float64 quantity into a string suitable for the Binance API.
func formatQuantity(quantity float64) string {
	return strconv.FormatFloat(quantity, 'f', 3, 64)
}

// enterPosition opens the market position for a leverage decision and
// attaches the stop-loss and take-profit reduce orders.
// NOTE: assumes the mutex `s.mu` is already locked by the caller.
func (s *StrategyService) enterPosition(ctx context.Context, lev domain.LeverageResult) (*domain.Position, error) {
	op := "enterPosition"

	// --- Calculations ---
	// 1. Set leverage on the exchange; fall back to whatever is set if the
	// call fails (position sizing below does not depend on it).
	if err := s.exchange.SetLeverage(ctx, s.cfg.Symbol, lev.Magnitude()); err != nil {
		s.logger.Warn(ctx, op+": Failed to set leverage, continuing with exchange default", map[string]interface{}{
			"symbol":   s.cfg.Symbol,
			"leverage": lev.Magnitude(),
			"error":    err.Error(),
		})
	}

	// 2. Reference price and quantity
	refPrice, err := s.exchange.GetTickerPrice(ctx, s.cfg.Symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticker price: %w", err)
	}
	if refPrice <= 0 {
		return nil, fmt.Errorf("invalid ticker price %f for %s", refPrice, s.cfg.Symbol)
	}
	quantity := s.cfg.BaseAmount * float64(lev.Magnitude()) / refPrice
	quantityStr := formatQuantity(quantity)

	// 3. Pre-trade risk validation
	balance, err := s.exchange.GetAccountBalance(ctx, "USDT")
	if err != nil {
		return nil, fmt.Errorf("failed to get account balance: %w", err)
	}
	candidate := &domain.Position{
		Symbol:     s.cfg.Symbol,
		EntryPrice: refPrice,
		Quantity:   quantity,
		Leverage:   lev.Leverage,
	}
	if err := s.riskMgr.ValidatePosition(candidate, balance); err != nil {
		return nil, fmt.Errorf("risk validation rejected position: %w", err)
	}

	short := lev.Direction == domain.Short
	side := lev.Direction.Side()
	s.logger.Info(ctx, op+": Attempting to enter position", map[string]interface{}{
		"side":     side,
		"quantity": quantityStr,
		"refPrice": refPrice,
		"leverage": lev.Leverage,
	})

	// --- Order Placement ---
	// 4. Place entry market order
	entryOrder, err := s.exchange.PlaceMarketOrder(ctx, s.cfg.Symbol, side, quantityStr)
	if err != nil {
		s.logger.Error(ctx, err, op+": Failed to place entry market order")
		return nil, fmt.Errorf("entry market order failed: %w", err)
	}
	// Use the actual filled price if available, otherwise fallback to the ticker price
	actualEntryPrice := entryOrder.AvgPrice
	if actualEntryPrice == 0 {
		s.logger.Warn(ctx, op+": Entry order AvgPrice is 0, using ticker price as fallback", map[string]interface{}{"orderID": entryOrder.OrderID, "fallbackPrice": refPrice})
		actualEntryPrice = refPrice
	} else {
		s.logger.Info(ctx, op+": Entry order filled", map[string]interface{}{"orderID": entryOrder.OrderID, "avgPrice": actualEntryPrice})
	}

	// 5. SL/TP levels against the actual fill price; exit orders take the
	// opposite side of the entry.
	slPrice := s.riskMgr.StopLossPrice(actualEntryPrice, short)
	tpPrice := s.riskMgr.TakeProfitPrice(actualEntryPrice, short)
	slPriceStr := formatPrice(slPrice)
	tpPriceStr := formatPrice(tpPrice)
	exitSide := domain.Sell
	if short {
		exitSide = domain.Buy
	}

	// 6. Place SL order
	slOrder, err := s.exchange.PlaceStopMarketOrder(ctx, s.cfg.Symbol, exitSide, quantityStr, slPriceStr)
	if err != nil {
		s.logger.Error(ctx, err, op+": Failed to place stop loss order")
		// Critical failure: open position without a stop loss. Close it
		// immediately as a safety measure.
		s.logger.Warn(ctx, op+": Attempting emergency close due to SL placement failure...")
		if closeErr := s.emergencyClose(ctx, quantityStr, side); closeErr != nil {
			s.logger.Error(ctx, closeErr, op+": EMERGENCY CLOSE FAILED")
		}
		return nil, fmt.Errorf("stop loss order failed after entry: %w (emergency close attempted)", err)
	}
	s.logger.Info(ctx, op+": Stop loss order placed", map[string]interface{}{"orderID": slOrder.OrderID, "stopPrice": slPriceStr})

	// 7. Place TP order
	tpOrder, err := s.exchange.PlaceTakeProfitMarketOrder(ctx, s.cfg.Symbol, exitSide, quantityStr, tpPriceStr)
	if err != nil {
		s.logger.Error(ctx, err, op+": Failed to place take profit order")
		s.logger.Warn(ctx, op+": Attempting emergency close due to TP placement failure...")
		if cancelErr := s.cancelOrderWarn(ctx, s.cfg.Symbol, slOrder.OrderID, "SL"); cancelErr != nil {
			s.logger.Error(ctx, cancelErr, op+": Failed to cancel SL order during TP failure cleanup")
		}
		if closeErr := s.emergencyClose(ctx, quantityStr, side); closeErr != nil {
			s.logger.Error(ctx, closeErr, op+": EMERGENCY CLOSE FAILED after TP failure")
		}
		return nil, fmt.Errorf("take profit order failed after entry: %w (emergency close attempted)", err)
	}
	s.logger.Info(ctx, op+": Take profit order placed", map[string]interface{}{"orderID": tpOrder.OrderID, "stopPrice": tpPriceStr})

	// --- Persistence and State Update ---
	newPosition := &domain.Position{
		Symbol:            s.cfg.Symbol,
		Event:             s.cfg.Indicator,
		EntryPrice:        actualEntryPrice, // Use actual filled price
		Quantity:          quantity,
		Leverage:          lev.Leverage,
		StopLoss:          slPrice,
		TakeProfit:        tpPrice,
		EntryTime:         time.Now().UTC(),
		Status:            domain.StatusOpen,
		StopLossOrderID:   ptrToString(strconv.FormatInt(slOrder.OrderID, 10)),
		TakeProfitOrderID: ptrToString(strconv.FormatInt(tpOrder.OrderID, 10)),
	}

	posID, err := s.posRepo.Create(ctx, newPosition)
	if err != nil {
		s.logger.Error(ctx, err, op+": Failed to save new position to repository")
		// Orders are placed but there is no DB record. Cancel and close.
		s.logger.Warn(ctx, op+": Attempting emergency close due to DB save failure...")
		if cancelSlErr := s.cancelOrderWarn(ctx, s.cfg.Symbol, slOrder.OrderID, "SL"); cancelSlErr != nil {
			s.logger.Error(ctx, cancelSlErr, op+": Failed to cancel SL order during DB failure cleanup")
		}
		if cancelTpErr := s.cancelOrderWarn(ctx, s.cfg.Symbol, tpOrder.OrderID, "TP"); cancelTpErr != nil {
			s.logger.Error(ctx, cancelTpErr, op+": Failed to cancel TP order during DB failure cleanup")
		}
		if closeErr := s.emergencyClose(ctx, quantityStr, side); closeErr != nil {
			s.logger.Error(ctx, closeErr, op+": EMERGENCY CLOSE FAILED after DB failure")
		}
		return nil, fmt.Errorf("failed to save position to DB after placing orders: %w (emergency close attempted)", err)
	}
	newPosition.ID = posID
	s.logger.Info(ctx, op+": New position saved to DB", map[string]interface{}{"positionID": newPosition.ID})

	s.currentPosition = newPosition
	s.tradesToday++
	s.riskMgr.RecordEntry()
	s.logger.Info(ctx, op+": Internal state updated", map[string]interface{}{"tradesToday": s.tradesToday})

	return newPosition, nil
}

// closePosition closes the current position with a market order, cancels the
// working SL/TP orders and records the trade.
// NOTE: assumes the mutex `s.mu` is already locked by the caller.
func (s *StrategyService) closePosition(ctx context.Context, reason domain.CloseReason) error {
	op := "closePosition"
	if s.currentPosition == nil {
		s.logger.Warn(ctx, op+": Attempted to close position, but no position is currently open")
		return fmt.Errorf("no open position to close")
	}

	positionToClose := s.currentPosition
	s.logger.Info(ctx, op+": Attempting to close position", map[string]interface{}{
		"positionID": positionToClose.ID,
		"reason":     string(reason),
	})

	// 1. Closing side is the opposite of the entry
	closeSide := domain.Sell
	if positionToClose.IsShort() {
		closeSide = domain.Buy
	}
	quantityStr := formatQuantity(positionToClose.Quantity)

	// 2. Place market order to close
	closeOrder, err := s.exchange.PlaceMarketOrder(ctx, s.cfg.Symbol, closeSide, quantityStr)
	if err != nil {
		// The position stays open; SL/TP orders are still active.
		s.logger.Error(ctx, err, op+": Failed to place closing market order", map[string]interface{}{"positionID": positionToClose.ID})
		return fmt.Errorf("failed to place closing market order for position %d: %w", positionToClose.ID, err)
	}
	actualExitPrice := closeOrder.AvgPrice
	if actualExitPrice == 0 {
		ticker, priceErr := s.exchange.GetTickerPrice(ctx, s.cfg.Symbol)
		if priceErr != nil || ticker <= 0 {
			s.logger.Warn(ctx, op+": Close order AvgPrice is 0 and no ticker price available, using entry price", map[string]interface{}{"orderID": closeOrder.OrderID})
			ticker = positionToClose.EntryPrice
		}
		actualExitPrice = ticker
	}
	s.logger.Info(ctx, op+": Closing market order placed successfully", map[string]interface{}{"orderID": closeOrder.OrderID, "avgPrice": actualExitPrice})

	// 3. Cancel the working SL/TP orders
	if positionToClose.StopLossOrderID != nil {
		slOrderID, _ := strconv.ParseInt(*positionToClose.StopLossOrderID, 10, 64)
		_ = s.cancelOrderWarn(ctx, s.cfg.Symbol, slOrderID, "SL")
	}
	if positionToClose.TakeProfitOrderID != nil {
		tpOrderID, _ := strconv.ParseInt(*positionToClose.TakeProfitOrderID, 10, 64)
		_ = s.cancelOrderWarn(ctx, s.cfg.Symbol, tpOrderID, "TP")
	}

	// 4. PNL; adverse sign flips for shorts
	pnl := (actualExitPrice - positionToClose.EntryPrice) * positionToClose.Quantity
	if positionToClose.IsShort() {
		pnl = -pnl
	}
	s.logger.Info(ctx, op+": Calculated PNL", map[string]interface{}{"positionID": positionToClose.ID, "pnl": pnl})

	// 5. Update the position record
	positionToClose.ExitPrice = actualExitPrice
	positionToClose.ExitTime = time.Now().UTC()
	positionToClose.Status = domain.StatusClosed
	positionToClose.PNL = pnl
	positionToClose.CloseReason = reason

	if err := s.posRepo.Update(ctx, positionToClose); err != nil {
		s.logger.Error(ctx, err, op+": Failed to update closed position in repository", map[string]interface{}{"positionID": positionToClose.ID})
		return fmt.Errorf("failed to update closed position in repository: %w", err)
	}

	// 6. Record the trade result
	action := "buy"
	if positionToClose.IsShort() {
		action = "sell"
	}
	trade := &domain.TradeResult{
		Event:        positionToClose.Event,
		Indicator:    s.cfg.Indicator,
		Action:       action,
		EntryTime:    positionToClose.EntryTime,
		ExitTime:     positionToClose.ExitTime,
		EntryPrice:   positionToClose.EntryPrice,
		ExitPrice:    actualExitPrice,
		ProfitOrLoss: pnl,
		Quantity:     positionToClose.Quantity,
		Leverage:     positionToClose.Leverage,
		CloseReason:  reason,
	}
	if _, err := s.tradeRepo.CreateTrade(ctx, trade); err != nil {
		// The position record already reflects the close; losing the trade
		// row is not worth failing the close for.
		s.logger.Error(ctx, err, op+": Failed to record trade result", map[string]interface{}{"positionID": positionToClose.ID})
	}

	// 7. Update internal state
	s.riskMgr.RecordClose(pnl)
	s.currentPosition = nil
	s.logger.Info(ctx, op+": Position closed successfully, internal state updated", map[string]interface{}{"positionID": positionToClose.ID})

	return nil
}

// emergencyClose places a market order to close the current exposure.
// Assumes entrySide was the side used to open the position.
// Used when SL/TP placement fails after entry.
func (s *StrategyService) emergencyClose(ctx context.Context, quantityStr string, entrySide domain.OrderSide) error {
	op := "emergencyClose"
	closeSide := domain.Sell
	if entrySide == domain.Sell {
		closeSide = domain.Buy
	}
	s.logger.Warn(ctx, op+": Placing emergency closing order", map[string]interface{}{"side": closeSide, "quantity": quantityStr})
	_, err := s.exchange.PlaceMarketOrder(ctx, s.cfg.Symbol, closeSide, quantityStr)
	if err != nil {
		s.logger.Error(ctx, err, op+": FAILED TO PLACE EMERGENCY CLOSE ORDER")
		return fmt.Errorf("emergency close order placement failed: %w", err)
	}
	s.logger.Info(ctx, op+": Emergency close order placed successfully")
	// Note: This does not update DB state, as the position might not have been saved yet.
	// It's purely a safety mechanism on the exchange side.
	return nil
}

// cancelOrderWarn attempts to cancel an order and logs a warning on failure.
func (s *StrategyService) cancelOrderWarn(ctx context.Context, symbol string, orderID int64, orderType string) error {
	op := "cancelOrderWarn"
	_, err := s.exchange.CancelOrder(ctx, symbol, orderID)
	if err != nil {
		// Ignore "Order does not exist" errors, as it might have already been filled or cancelled.
		if errors.Is(err, ports.ErrOrderNotFound) {
			s.logger.Warn(ctx, op+": Order not found, likely already filled or cancelled", map[string]interface{}{"orderID": orderID, "type": orderType})
			return nil // Not an error in this context
		}
		s.logger.Error(ctx, err, op+": Failed to cancel order", map[string]interface{}{"orderID": orderID, "type": orderType})
		return err // Return other errors
	}
	s.logger.Info(ctx, op+": Order cancelled successfully", map[string]interface{}{"orderID": orderID, "type": orderType})
	return nil
}

// ptrToString converts a string to a pointer to a string.
func ptrToString(s string) *string {
	return &s
}

func mergeFields(base, extra map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
