package persistence

import (
	"context"

	"gorm.io/gorm"
)

type txContextKey struct{}

// withTx returns a context carrying the open transaction. Scopes executing
// under this context join it instead of opening a transaction of their own,
// so cross-aggregate operations commit or roll back as one unit.
func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// txFrom returns the transaction carried by ctx, or nil when none is open.
func txFrom(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txContextKey{}).(*gorm.DB)
	return tx
}
