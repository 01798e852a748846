package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type TicketRepo struct {
	db *gorm.DB
}

func NewTicketRepo(db *gorm.DB) *TicketRepo { return &TicketRepo{db: db} }

// FindByOrderNumbers returns stored tickets carrying any of orders.
func (r *TicketRepo) FindByOrderNumbers(ctx context.Context, orders []string) ([]ServiceTicket, error) {
	if len(orders) == 0 {
		return nil, nil
	}
	var out []ServiceTicket
	if err := r.db.WithContext(ctx).Where("order_number IN ?", orders).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("find tickets: %w", err)
	}
	return out, nil
}

// CreateBatch inserts all tickets or none.
func (r *TicketRepo) CreateBatch(ctx context.Context, tickets []ServiceTicket) error {
	if len(tickets) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&tickets).Error
	})
	if err != nil {
		return fmt.Errorf("create tickets: %w", err)
	}
	return nil
}
