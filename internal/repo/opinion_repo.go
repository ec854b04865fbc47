// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Opinion
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business rules, only persistence and query composition.
//
// Error semantics:
//   - When an opinion is not found, functions return ErrNotFound.
//   - Writes rejected by ux_opinions_text return ErrDuplicate.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-opinions-backend/internal/domain"
)

// opinionColumns are the user-writable columns.
var opinionColumns = []string{"title", "text", "source", "added_by"}

// CreateOpinion inserts o and fills in its generated ID.
func CreateOpinion(ctx context.Context, db *gorm.DB, o *domain.Opinion) error {
	if err := db.WithContext(ctx).Create(o).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetOpinion fetches a single opinion by primary key.
func GetOpinion(ctx context.Context, db *gorm.DB, id uint) (*domain.Opinion, error) {
	var o domain.Opinion
	if err := db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOpinions returns every opinion ordered by id ascending. It returns an
// empty slice when the table is empty.
func ListOpinions(ctx context.Context, db *gorm.DB) ([]domain.Opinion, error) {
	out := []domain.Opinion{}
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// TextTaken reports whether any opinion already uses text. The match is
// exact and case-sensitive.
func TextTaken(ctx context.Context, db *gorm.DB, text string) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Model(&domain.Opinion{}).Where("text = ?", text).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateOpinion writes every user-writable column of o, including NULLs for
// unset optional fields. It returns ErrNotFound when no row has o.ID.
func UpdateOpinion(ctx context.Context, db *gorm.DB, o *domain.Opinion) error {
	res := db.WithContext(ctx).
		Model(o).
		Select(opinionColumns).
		Updates(o)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOpinion removes the opinion with id. It returns ErrNotFound when no
// row was deleted.
func DeleteOpinion(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Opinion{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RandomOpinion picks one opinion uniformly at random. RANDOM() is understood
// by both SQLite and PostgreSQL. It returns ErrNotFound on an empty table.
func RandomOpinion(ctx context.Context, db *gorm.DB) (*domain.Opinion, error) {
	var out []domain.Opinion
	if err := db.WithContext(ctx).Order("RANDOM()").Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}
