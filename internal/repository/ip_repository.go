package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ngrabbs/schedule-manager/internal/model"
)

// IPRepository stores the append-only public IP history.
type IPRepository struct {
	db *gorm.DB
}

func NewIPRepository(db *gorm.DB) *IPRepository {
	return &IPRepository{db: db}
}

func (r *IPRepository) Append(ctx context.Context, record *model.IPRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("append ip record: %w", err)
	}
	return nil
}

// Latest returns the most recent record, or nil if the history is empty.
func (r *IPRepository) Latest(ctx context.Context) (*model.IPRecord, error) {
	var record model.IPRecord
	err := r.db.WithContext(ctx).Order("detected_at DESC, id DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest ip record: %w", err)
	}
	return &record, nil
}
