package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"macroNewsBot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}
func (m *mockLogger) Fatal(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "macro-bot-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func TestRepository_PositionLifecycle(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	slOrder := "12345"
	tpOrder := "12346"
	entryTime := time.Now().UTC().Truncate(time.Second)

	pos := &domain.Position{
		Symbol:            "BTCUSDT",
		Event:             "CPI",
		EntryPrice:        60000.0,
		Quantity:          10.0,
		Leverage:          -5,
		StopLoss:          60120.0,
		TakeProfit:        58800.0,
		EntryTime:         entryTime,
		Status:            domain.StatusOpen,
		StopLossOrderID:   &slOrder,
		TakeProfitOrderID: &tpOrder,
	}

	id, err := repo.Create(ctx, pos)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))
	assert.Equal(t, id, pos.ID)

	// Open position is found by symbol
	found, err := repo.FindOpenBySymbol(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found.ID)
	assert.Equal(t, "CPI", found.Event)
	assert.Equal(t, -5, found.Leverage)
	assert.True(t, found.IsShort())

	// No open position for another symbol
	none, err := repo.FindOpenBySymbol(ctx, "ETHUSDT")
	require.NoError(t, err)
	assert.Nil(t, none)

	// Close the position
	pos.ExitPrice = 58800.0
	pos.ExitTime = entryTime.Add(5 * time.Minute)
	pos.Status = domain.StatusClosed
	pos.PNL = 12000.0
	pos.CloseReason = domain.CloseReasonTakeProfit
	err = repo.Update(ctx, pos)
	require.NoError(t, err)

	// Closed position no longer found as open
	none, err = repo.FindOpenBySymbol(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, none)

	byID, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, domain.StatusClosed, byID.Status)
	assert.Equal(t, domain.CloseReasonTakeProfit, byID.CloseReason)
	assert.Equal(t, 12000.0, byID.PNL)

	total, err := repo.GetTotalProfit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12000.0, total)
}

func TestRepository_UpdateMissingPosition(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.Update(context.Background(), &domain.Position{ID: 9999, Status: domain.StatusClosed})
	assert.Error(t, err)
}

func TestRepository_FindMissingPosition(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	pos, err := repo.FindByID(context.Background(), 424242)
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestRepository_TradeResults(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	trades := []*domain.TradeResult{
		{
			Event:        "cpi-2024-06",
			Indicator:    "CPI",
			Action:       "sell",
			EntryTime:    now.Add(-48 * time.Hour),
			ExitTime:     now.Add(-48*time.Hour + 3*time.Minute),
			EntryPrice:   60000,
			ExitPrice:    58800,
			ProfitOrLoss: 12000,
			Quantity:     10,
			Leverage:     -5,
			CloseReason:  domain.CloseReasonTakeProfit,
		},
		{
			Event:        "nfp-2024-07",
			Indicator:    "NFP",
			Action:       "buy (closed - no movement)",
			EntryTime:    now,
			ExitTime:     now.Add(12 * time.Second),
			EntryPrice:   61000,
			ExitPrice:    61005,
			ProfitOrLoss: 16.4,
			Quantity:     3.28,
			Leverage:     1,
			CloseReason:  domain.CloseReasonNoMovement,
		},
	}
	for _, trade := range trades {
		id, err := repo.CreateTrade(ctx, trade)
		require.NoError(t, err)
		assert.Greater(t, id, int64(0))
	}

	// FindByEvent returns only the matching trade
	byEvent, err := repo.FindByEvent(ctx, "cpi-2024-06")
	require.NoError(t, err)
	require.Len(t, byEvent, 1)
	assert.Equal(t, "CPI", byEvent[0].Indicator)
	assert.Equal(t, domain.CloseReasonTakeProfit, byEvent[0].CloseReason)
	assert.Equal(t, 12000.0, byEvent[0].ProfitOrLoss)

	// FindAll is ordered by entry time ascending
	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "cpi-2024-06", all[0].Event)
	assert.Equal(t, "nfp-2024-07", all[1].Event)

	// Only the second trade was entered today
	count, err := repo.CountToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
