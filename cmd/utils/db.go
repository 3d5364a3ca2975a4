package utils

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockForUpdate takes a row-level lock on dialects that support it. SQLite
// has no FOR UPDATE; its single-writer model already serializes the
// transaction there.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
