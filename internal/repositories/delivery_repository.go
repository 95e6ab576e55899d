package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/functions/internal/models"
	"gorm.io/gorm"
)

// DeliveryRepository stores push delivery receipts
type DeliveryRepository interface {
	CreateReceipt(ctx context.Context, receipt *models.DeliveryReceipt) error
}

type postgresDeliveryRepository struct {
	db *gorm.DB
}

func NewPostgresDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &postgresDeliveryRepository{db: db}
}

func (r *postgresDeliveryRepository) CreateReceipt(ctx context.Context, receipt *models.DeliveryReceipt) error {
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(receipt).Error
}
