package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/horizonbank/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAccountDirectory resolves a public identifier (email or phone) to
// the account identity it belongs to. It backs the P2P recipient lookup.
type GormAccountDirectory struct {
	db *gorm.DB
}

// NewGormAccountDirectory creates a new GormAccountDirectory
func NewGormAccountDirectory(db *gorm.DB) *GormAccountDirectory {
	return &GormAccountDirectory{db: db}
}

// Resolve looks up the identity behind an email or phone number
func (d *GormAccountDirectory) Resolve(ctx context.Context, publicIdentifier string) (uuid.UUID, error) {
	identifier := strings.TrimSpace(publicIdentifier)
	if identifier == "" {
		return uuid.Nil, shared.ErrRecipientNotFound
	}

	var model models.AccountModel
	query := d.db.WithContext(ctx).Select("owner_id")
	if strings.Contains(identifier, "@") {
		query = query.Where("lower(email) = lower(?)", identifier)
	} else {
		query = query.Where("phone = ?", identifier)
	}
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, shared.ErrRecipientNotFound
		}
		return uuid.Nil, err
	}
	return model.OwnerID, nil
}
