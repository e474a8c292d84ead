package sqlite

import (
	"context"
	"errors"

	"propguard/internal/store/model"
	"propguard/internal/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tradeRepo implements the TradeStore interface.
type tradeRepo struct {
	db *gorm.DB
}

// NewTradeRepo creates a new tradeRepo.
func NewTradeRepo(db *gorm.DB) *tradeRepo {
	return &tradeRepo{db: db}
}

// Upsert saves or updates a trade keyed by (account_id, ticket).
func (r *tradeRepo) Upsert(ctx context.Context, trade *types.Trade) error {
	if trade == nil {
		return errors.New("trade cannot be nil")
	}
	m := model.TradeToModel(trade)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "ticket"}},
		UpdateAll: true,
	}).Create(m).Error
}

// ListByAccount returns trades for an account ordered by open_time
// ascending, the order rule evaluation requires.
func (r *tradeRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]types.Trade, error) {
	var ms []model.TradeModel
	q := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("open_time ASC, ticket ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]types.Trade, 0, len(ms))
	for i := range ms {
		out = append(out, model.TradeFromModel(&ms[i]))
	}
	return out, nil
}
