package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a per-user taxonomy entry. Name uniqueness is enforced on the
// normalized form (lowercased, whitespace collapsed), so "Dairy" and "dairy "
// are the same category.
type Category struct {
	ID          uuid.UUID `db:"id"`
	UserID      uuid.UUID `db:"user_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}
