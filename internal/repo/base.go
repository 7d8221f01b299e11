package repo

import (
	"context"

	"github.com/angelmondragon/userbridge-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Base is embedded by the user and role repositories.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to ctx. A nil ctx yields the raw connection.
// Queries through it skip soft-deleted rows.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithDeleted is DB without the deleted_at filter.
func (b Base) WithDeleted(ctx context.Context) *gorm.DB {
	return b.DB(ctx).Unscoped()
}

// InTx runs fn inside a transaction bound to ctx. Any error returned by fn
// rolls the transaction back and is returned unchanged.
func (b Base) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return b.DB(ctx).Transaction(fn)
}

// Page is a gorm scope applying a normalized 1-based page window.
func Page(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		size := pagination.NormalizeLimit(pageSize)
		return tx.Offset(pagination.Offset(page, size)).Limit(size)
	}
}
