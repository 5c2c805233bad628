package ports

import (
	"context"

	"macroNewsBot/internal/domain"
)

// PositionRepository defines the interface for storing and retrieving live positions.
type PositionRepository interface {
	// Create saves a new position and returns its assigned ID.
	Create(ctx context.Context, pos *domain.Position) (int64, error)
	// Update modifies an existing position.
	Update(ctx context.Context, pos *domain.Position) error
	// FindOpenBySymbol retrieves the currently open position for a given symbol, if any.
	// Returns nil, nil if no open position is found.
	FindOpenBySymbol(ctx context.Context, symbol string) (*domain.Position, error)
	// FindByID retrieves a position by its unique ID.
	// Returns nil, nil if not found.
	FindByID(ctx context.Context, id int64) (*domain.Position, error)
	// GetTotalProfit calculates the sum of PNL for all closed positions.
	GetTotalProfit(ctx context.Context) (float64, error)
}

// TradeRepository defines the interface for storing and retrieving trade results,
// both from live runs and from persisted backtests.
type TradeRepository interface {
	// CreateTrade saves a new trade record and returns its assigned ID.
	CreateTrade(ctx context.Context, trade *domain.TradeResult) (int64, error)
	// FindByEvent retrieves all trades recorded for a given event identifier.
	FindByEvent(ctx context.Context, event string) ([]*domain.TradeResult, error)
	// FindAll retrieves all trades ordered by entry time ascending.
	FindAll(ctx context.Context) ([]*domain.TradeResult, error)
	// CountToday counts the number of trades entered today (UTC).
	CountToday(ctx context.Context) (int, error)
}
