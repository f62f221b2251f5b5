package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by lookups that match no row
var ErrNotFound = errors.New("record not found")

// conn picks the transaction when the caller runs inside one, the pool otherwise
func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

// forUpdate locks the selected rows until the transaction ends
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Page limits list queries
type Page struct {
	Limit  int
	Offset int
}

func (p Page) apply(db *gorm.DB, def int) *gorm.DB {
	limit := p.Limit
	if limit <= 0 || limit > 500 {
		limit = def
	}
	return db.Limit(limit).Offset(p.Offset)
}
