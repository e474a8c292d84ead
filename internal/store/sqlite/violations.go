package sqlite

import (
	"context"
	"errors"

	"propguard/internal/store/model"
	"propguard/internal/types"

	"gorm.io/gorm"
)

// violationRepo implements the append-only ViolationStore interface.
type violationRepo struct {
	db *gorm.DB
}

// NewViolationRepo creates a new violationRepo.
func NewViolationRepo(db *gorm.DB) *violationRepo {
	return &violationRepo{db: db}
}

func (r *violationRepo) Insert(ctx context.Context, flag *types.ViolationFlag) error {
	if flag == nil {
		return errors.New("violation cannot be nil")
	}
	return r.db.WithContext(ctx).Create(model.ViolationToModel(flag)).Error
}

func (r *violationRepo) ListByAccount(ctx context.Context, accountID string, limit int) ([]types.ViolationFlag, error) {
	var ms []model.ViolationModel
	q := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&ms).Error; err != nil {
		return nil, err
	}
	return violationsFromModels(ms), nil
}

func (r *violationRepo) ListRecent(ctx context.Context, limit int) ([]types.ViolationFlag, error) {
	var ms []model.ViolationModel
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&ms).Error; err != nil {
		return nil, err
	}
	return violationsFromModels(ms), nil
}

func (r *violationRepo) ListByTicket(ctx context.Context, accountID string, ticket int64) ([]types.ViolationFlag, error) {
	var ms []model.ViolationModel
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND ticket = ?", accountID, ticket).
		Order("created_at DESC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return violationsFromModels(ms), nil
}

func (r *violationRepo) HasBreach(ctx context.Context, accountID string, flagType types.FlagType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ViolationModel{}).
		Where("account_id = ? AND flag_type = ? AND severity = ?",
			accountID, string(flagType), string(types.SeverityBreach)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func violationsFromModels(ms []model.ViolationModel) []types.ViolationFlag {
	out := make([]types.ViolationFlag, 0, len(ms))
	for i := range ms {
		out = append(out, model.ViolationFromModel(&ms[i]))
	}
	return out
}
