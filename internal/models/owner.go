package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Owner is the account a schedule belongs to. Identity comes from the bearer
// token; the row only carries what the scheduler needs.
type Owner struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Username  string    `json:"username"`
	Timezone  string    `json:"timezone" gorm:"not null;default:'UTC'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Schedules []Schedule `json:"schedules,omitempty" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
}

// Location returns the owner's timezone, or UTC when the stored name is
// empty or unknown.
func (o *Owner) Location() (*time.Location, error) {
	if o.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}

func (o *Owner) BeforeCreate(tx *gorm.DB) error {
	if o.ID.IsNil() {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		o.ID = id
	}
	return nil
}
