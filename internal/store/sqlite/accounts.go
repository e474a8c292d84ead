package sqlite

import (
	"context"
	"errors"
	"time"

	"propguard/internal/store/model"
	"propguard/internal/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accountRepo implements the AccountStore interface.
type accountRepo struct {
	db *gorm.DB
}

// NewAccountRepo creates a new accountRepo.
func NewAccountRepo(db *gorm.DB) *accountRepo {
	return &accountRepo{db: db}
}

// Save saves or updates an account.
func (r *accountRepo) Save(ctx context.Context, acc *types.Account) error {
	if acc == nil {
		return errors.New("account cannot be nil")
	}
	m := model.AccountToModel(acc)
	m.UpdatedAtUnix = time.Now().Unix()
	if m.CreatedAtUnix <= 0 {
		m.CreatedAtUnix = m.UpdatedAtUnix
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Save(m).Error
}

// FindByID finds an account by id; returns nil when absent.
func (r *accountRepo) FindByID(ctx context.Context, id string) (*types.Account, error) {
	var m model.AccountModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.AccountFromModel(&m), nil
}

func (r *accountRepo) ListByIDs(ctx context.Context, ids []string) ([]types.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var ms []model.AccountModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]types.Account, 0, len(ms))
	for i := range ms {
		out = append(out, *model.AccountFromModel(&ms[i]))
	}
	return out, nil
}

func (r *accountRepo) ListActiveIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.AccountModel{}).
		Where("status = ?", string(types.AccountActive)).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *accountRepo) UpdateEquity(ctx context.Context, id string, equity, balance float64) error {
	return r.db.WithContext(ctx).
		Model(&model.AccountModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_equity":  equity,
			"current_balance": balance,
			"updated_at":      time.Now().Unix(),
		}).Error
}

// TransitionStatus applies a guarded one-directional status change. The
// WHERE clause on the previous status makes a repeated call affect zero
// rows instead of overwriting a terminal state.
func (r *accountRepo) TransitionStatus(ctx context.Context, id string, from, to types.AccountStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.AccountModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{
			"status":     string(to),
			"updated_at": time.Now().Unix(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ResetStartOfDay applies the once-per-UTC-day equity reset. The day
// marker guard means a rerun of a missed job cannot double-reset.
func (r *accountRepo) ResetStartOfDay(ctx context.Context, id string, equity float64, day string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.AccountModel{}).
		Where("id = ? AND sod_reset_day <> ?", id, day).
		Updates(map[string]any{
			"start_of_day_equity": equity,
			"sod_reset_day":       day,
			"updated_at":          time.Now().Unix(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
