package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context carries a request context plus an optional GORM transaction.
// Repos fall back to their own handle when Tx is nil.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
