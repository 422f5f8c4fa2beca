package apikeys

import (
	"time"

	"github.com/google/uuid"
)

// APIKey identifies one API consumer. The key itself is a UUID carried in
// the Authorization header; nothing secret beyond that is stored.
type APIKey struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Key        uuid.UUID  `json:"key" db:"key"`
	Name       string     `json:"name" db:"name"`
	IsActive   bool       `json:"is_active" db:"is_active"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastUsed   *time.Time `json:"last_used,omitempty" db:"last_used"`
	UsageCount int64      `json:"usage_count" db:"usage_count"`
}
