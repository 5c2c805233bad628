package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macroNewsBot/config"
	"macroNewsBot/internal/domain"
	"macroNewsBot/internal/ports"
	"macroNewsBot/internal/strategy"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

func (m *mockLogger) Fatal(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	// No-op for tests
}

// mockFeed returns the queued results in order, repeating the last one.
type mockFeed struct {
	mu      sync.Mutex
	results []fetchResult
	calls   int
	proxies []*ports.Proxy
}

type fetchResult struct {
	value *float64
	err   error
}

func (m *mockFeed) Fetch(ctx context.Context, proxy *ports.Proxy) (*float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proxies = append(m.proxies, proxy)
	idx := m.calls
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	m.calls++
	r := m.results[idx]
	return r.value, r.err
}

func (m *mockFeed) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockRotation struct {
	mu      sync.Mutex
	proxies []ports.Proxy
	next    int
}

func (m *mockRotation) Next() *ports.Proxy {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.proxies) == 0 {
		return nil
	}
	p := m.proxies[m.next]
	m.next = (m.next + 1) % len(m.proxies)
	return &p
}

type placedOrder struct {
	kind      string // market, stop, tp
	side      domain.OrderSide
	quantity  string
	stopPrice string
}

type mockExchange struct {
	mu            sync.Mutex
	serverTimeErr error
	leverageErr   error
	tickerPrice   float64
	tickerErr     error
	balance       float64
	marketErr     error
	stopErr       error
	tpErr         error
	orders        []placedOrder
	cancelled     []int64
	setLeverage   []int
	nextOrderID   int64
}

func (m *mockExchange) SetServerTime(ctx context.Context) error { return m.serverTimeErr }

func (m *mockExchange) GetServerTime(ctx context.Context) (time.Time, error) {
	return time.Now(), nil
}

func (m *mockExchange) GetMarkPrice(ctx context.Context, symbol string) (float64, error) {
	return m.tickerPrice, m.tickerErr
}

func (m *mockExchange) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return m.tickerPrice, m.tickerErr
}

func (m *mockExchange) GetAccountBalance(ctx context.Context, asset string) (float64, error) {
	return m.balance, nil
}

func (m *mockExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLeverage = append(m.setLeverage, leverage)
	return m.leverageErr
}

func (m *mockExchange) placeOrder(kind string, side domain.OrderSide, quantity, stopPrice string, err error) (*ports.OrderResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	m.nextOrderID++
	m.orders = append(m.orders, placedOrder{kind: kind, side: side, quantity: quantity, stopPrice: stopPrice})
	return &ports.OrderResponse{OrderID: m.nextOrderID, AvgPrice: m.tickerPrice, Status: "FILLED"}, nil
}

func (m *mockExchange) PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string) (*ports.OrderResponse, error) {
	return m.placeOrder("market", side, quantity, "", m.marketErr)
}

func (m *mockExchange) PlaceStopMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string, stopPrice string) (*ports.OrderResponse, error) {
	return m.placeOrder("stop", side, quantity, stopPrice, m.stopErr)
}

func (m *mockExchange) PlaceTakeProfitMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string, stopPrice string) (*ports.OrderResponse, error) {
	return m.placeOrder("tp", side, quantity, stopPrice, m.tpErr)
}

func (m *mockExchange) GetPositionRisk(ctx context.Context, symbol string) (*ports.PositionRisk, error) {
	return nil, nil
}

func (m *mockExchange) CancelOrder(ctx context.Context, symbol string, orderID int64) (*ports.OrderResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, orderID)
	return &ports.OrderResponse{OrderID: orderID, Status: "CANCELED"}, nil
}

func (m *mockExchange) Ping(ctx context.Context) error { return nil }

func (m *mockExchange) GetBarsRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.PriceBar, error) {
	return nil, nil
}

func (m *mockExchange) ordersByKind(kind string) []placedOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []placedOrder
	for _, o := range m.orders {
		if o.kind == kind {
			out = append(out, o)
		}
	}
	return out
}

type mockPositionRepo struct {
	mu        sync.Mutex
	positions map[int64]*domain.Position
	open      *domain.Position
	nextID    int64
	createErr error
	updateErr error
}

func newMockPositionRepo() *mockPositionRepo {
	return &mockPositionRepo{positions: make(map[int64]*domain.Position)}
}

func (m *mockPositionRepo) Create(ctx context.Context, pos *domain.Position) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.nextID++
	pos.ID = m.nextID
	m.positions[pos.ID] = pos
	return pos.ID, nil
}

func (m *mockPositionRepo) Update(ctx context.Context, pos *domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.positions[pos.ID] = pos
	return nil
}

func (m *mockPositionRepo) FindOpenBySymbol(ctx context.Context, symbol string) (*domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open, nil
}

func (m *mockPositionRepo) FindByID(ctx context.Context, id int64) (*domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions[id], nil
}

func (m *mockPositionRepo) GetTotalProfit(ctx context.Context) (float64, error) {
	return 0, nil
}

type mockTradeRepo struct {
	mu         sync.Mutex
	trades     []*domain.TradeResult
	countToday int
}

func (m *mockTradeRepo) CreateTrade(ctx context.Context, trade *domain.TradeResult) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, trade)
	return int64(len(m.trades)), nil
}

func (m *mockTradeRepo) FindByEvent(ctx context.Context, event string) ([]*domain.TradeResult, error) {
	return nil, nil
}

func (m *mockTradeRepo) FindAll(ctx context.Context) ([]*domain.TradeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trades, nil
}

func (m *mockTradeRepo) CountToday(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countToday, nil
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		Symbol:          "BTCUSDT",
		BaseAmount:      200000,
		MaxPositionSize: 1000000,
		StopLoss:        0.002,
		TakeProfit:      0.02,
		ReturnThreshold: 0.001,
		GracePeriod:     10 * time.Second,
		MaxOrders:       5,
		PollInterval:    10 * time.Millisecond,
		Indicator:       "CPI",
	}
}

// CPI-style inverse relation: a hot print is a short.
func testParams() strategy.Params {
	return strategy.Params{Threshold: 1.3, Offset: 0.2, Direct: false}
}

func newService(t *testing.T, cfg *config.Config, exchange *mockExchange, posRepo *mockPositionRepo, tradeRepo *mockTradeRepo, feed *mockFeed, params strategy.Params) *StrategyService {
	t.Helper()
	svc, err := NewStrategyService(cfg, &mockLogger{}, exchange, posRepo, tradeRepo, feed, &mockRotation{}, params)
	require.NoError(t, err)
	return svc
}

func float64Ptr(v float64) *float64 { return &v }

// --- Tests ---

func TestNewStrategyService_Validation(t *testing.T) {
	cfg := testConfig()
	exchange := &mockExchange{}
	posRepo := newMockPositionRepo()
	tradeRepo := &mockTradeRepo{}
	feed := &mockFeed{results: []fetchResult{{}}}
	logger := &mockLogger{}

	t.Run("missing feed", func(t *testing.T) {
		_, err := NewStrategyService(cfg, logger, exchange, posRepo, tradeRepo, nil, nil, testParams())
		assert.Error(t, err)
	})

	t.Run("zero offset", func(t *testing.T) {
		_, err := NewStrategyService(cfg, logger, exchange, posRepo, tradeRepo, feed, nil, strategy.Params{Threshold: 1.3})
		assert.Error(t, err)
	})

	t.Run("max position below base amount", func(t *testing.T) {
		small := testConfig()
		small.MaxPositionSize = 100
		_, err := NewStrategyService(small, logger, exchange, posRepo, tradeRepo, feed, nil, testParams())
		assert.Error(t, err)
	})

	t.Run("nil rotation is valid", func(t *testing.T) {
		_, err := NewStrategyService(cfg, logger, exchange, posRepo, tradeRepo, feed, nil, testParams())
		assert.NoError(t, err)
	})
}

func TestRun_SingleShotNoValue(t *testing.T) {
	cfg := testConfig()
	cfg.SingleShot = true
	exchange := &mockExchange{tickerPrice: 60000, balance: 2000000}
	feed := &mockFeed{results: []fetchResult{{value: nil}}}

	svc := newService(t, cfg, exchange, newMockPositionRepo(), &mockTradeRepo{}, feed, testParams())
	err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, feed.fetchCount())
	assert.Empty(t, exchange.orders)
}

func TestRun_DeadZoneNoTrade(t *testing.T) {
	cfg := testConfig()
	exchange := &mockExchange{tickerPrice: 60000, balance: 2000000}
	// 1.35 vs threshold 1.3, offset 0.2: rounds to zero leverage
	feed := &mockFeed{results: []fetchResult{{value: float64Ptr(1.35)}}}

	svc := newService(t, cfg, exchange, newMockPositionRepo(), &mockTradeRepo{}, feed, testParams())
	err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, exchange.orders)
	assert.True(t, svc.executed.Load())
}

func TestRun_OpensShortOnHotPrint(t *testing.T) {
	cfg := testConfig()
	exchange := &mockExchange{tickerPrice: 60000, balance: 2000000}
	posRepo := newMockPositionRepo()
	tradeRepo := &mockTradeRepo{}
	// Raw leverage (3.5-1.3)/0.2 = 11, clamps to 5, inverts to -5: short.
	feed := &mockFeed{results: []fetchResult{{value: float64Ptr(3.5)}}}

	svc := newService(t, cfg, exchange, posRepo, tradeRepo, feed, testParams())
	err := svc.Run(context.Background())
	require.NoError(t, err)

	// Entry market order: SELL, quantity 200000*5/60000
	markets := exchange.ordersByKind("market")
	require.Len(t, markets, 1)
	assert.Equal(t, domain.Sell, markets[0].side)
	assert.Equal(t, "16.667", markets[0].quantity)
	assert.Equal(t, []int{5}, exchange.setLeverage)

	// Short exits are BUY orders; stop above entry, target below
	stops := exchange.ordersByKind("stop")
	require.Len(t, stops, 1)
	assert.Equal(t, domain.Buy, stops[0].side)
	assert.Equal(t, "60120.00", stops[0].stopPrice)

	tps := exchange.ordersByKind("tp")
	require.Len(t, tps, 1)
	assert.Equal(t, domain.Buy, tps[0].side)
	assert.Equal(t, "58800.00", tps[0].stopPrice)

	// Position persisted as open short
	pos, perr := posRepo.FindByID(context.Background(), 1)
	require.NoError(t, perr)
	require.NotNil(t, pos)
	assert.Equal(t, -5, pos.Leverage)
	assert.True(t, pos.IsShort())
	assert.Equal(t, domain.StatusOpen, pos.Status)
	assert.Equal(t, "CPI", pos.Event)
}

func TestRun_TransportErrorRetriesThenExecutes(t *testing.T) {
	cfg := testConfig()
	exchange := &mockExchange{tickerPrice: 60000, balance: 2000000}
	feed := &mockFeed{results: []fetchResult{
		{err: ports.ErrConnectionFailed},
		{value: nil},
		{value: float64Ptr(3.5)},
	}}

	svc := newService(t, cfg, exchange, newMockPositionRepo(), &mockTradeRepo{}, feed, testParams())
	err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, feed.fetchCount(), 3)
	// Despite multiple polling ticks, exactly one entry was placed
	assert.Len(t, exchange.ordersByKind("market"), 1)
}

func TestRun_MaxHoldClosesPosition(t *testing.T) {
	cfg := testConfig()
	exchange := &mockExchange{tickerPrice: 60000, balance: 2000000}
	posRepo := newMockPositionRepo()
	tradeRepo := &mockTradeRepo{}
	feed := &mockFeed{results: []fetchResult{{value: float64Ptr(3.5)}}}
	params := testParams()
	params.MaxHold = 50 * time.Millisecond

	svc := newService(t, cfg, exchange, posRepo, tradeRepo, feed, params)
	err := svc.Run(context.Background())
	require.NoError(t, err)

	// Entry and timed close market orders
	markets := exchange.ordersByKind("market")
	require.Len(t, markets, 2)
	assert.Equal(t, domain.Sell, markets[0].side)
	assert.Equal(t, domain.Buy, markets[1].side)

	// Working SL/TP orders were cancelled on close
	assert.Len(t, exchange.cancelled, 2)

	// Position record closed with the timed-exit reason
	pos, perr := posRepo.FindByID(context.Background(), 1)
	require.NoError(t, perr)
	require.NotNil(t, pos)
	assert.Equal(t, domain.StatusClosed, pos.Status)
	assert.Equal(t, domain.CloseReasonMaxHold, pos.CloseReason)

	// Trade result recorded
	trades, terr := tradeRepo.FindAll(context.Background())
	require.NoError(t, terr)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.CloseReasonMaxHold, trades[0].CloseReason)
	assert.Equal(t, "sell", trades[0].Action)
}

func TestRun_BlockedByExistingPosition(t *testing.T) {
	cfg := testConfig()
	exchange := &mockExchange{tickerPrice: 60000, balance: 2000000}
	posRepo := newMockPositionRepo()
	posRepo.open = &domain.Position{ID: 42, Symbol: "BTCUSDT", Status: domain.StatusOpen}
	feed := &mockFeed{results: []fetchResult{{value: float64Ptr(3.5)}}}

	svc := newService(t, cfg, exchange, posRepo, &mockTradeRepo{}, feed, testParams())
	err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, exchange.orders)
}

func TestRun_BlockedByDailyTradeLimit(t *testing.T) {
	cfg := testConfig()
	exchange := &mockExchange{tickerPrice: 60000, balance: 2000000}
	tradeRepo := &mockTradeRepo{countToday: cfg.MaxOrders}
	feed := &mockFeed{results: []fetchResult{{value: float64Ptr(3.5)}}}

	svc := newService(t, cfg, exchange, newMockPositionRepo(), tradeRepo, feed, testParams())
	err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, exchange.orders)
}
