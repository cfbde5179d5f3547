package db

import (
	"context"

	"gorm.io/gorm"
)

// Session returns a handle scoped to one unit of work (a request or a
// pipeline run), carrying the caller's context for cancellation.
func Session(ctx context.Context) *gorm.DB {
	return DB.WithContext(ctx).Session(&gorm.Session{NewDB: true})
}
