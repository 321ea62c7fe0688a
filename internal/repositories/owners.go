package repositories

import (
	"context"
	"fmt"

	"day-planner/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OwnerRepository struct {
	db *gorm.DB
}

func (r *OwnerRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Owner, error) {
	var owner models.Owner
	if err := r.db.WithContext(ctx).First(&owner, "id = ?", id).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("owner %s", id))
	}
	return &owner, nil
}

// Ensure inserts owner when no row with its id exists and returns the stored
// row. An existing timezone is only replaced when owner carries a new one.
func (r *OwnerRepository) Ensure(ctx context.Context, owner *models.Owner) (*models.Owner, error) {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(owner).Error; err != nil {
		return nil, err
	}

	stored, err := r.FindByID(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	if owner.Timezone != "" && owner.Timezone != stored.Timezone {
		if err := db.Model(stored).Update("timezone", owner.Timezone).Error; err != nil {
			return nil, err
		}
		stored.Timezone = owner.Timezone
	}
	return stored, nil
}
