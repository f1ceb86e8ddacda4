package shared_test

import (
	"testing"
	"time"

	"github.com/horizonbank/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEntity(t *testing.T) {
	e := shared.NewBaseEntity()

	require.NotEqual(t, [16]byte{}, [16]byte(e.ID))
	assert.False(t, e.CreatedAt.IsZero())
	assert.Equal(t, e.CreatedAt, e.UpdatedAt)
}

func TestBaseEntity_Touch(t *testing.T) {
	e := shared.NewBaseEntity()
	created := e.CreatedAt
	e.UpdatedAt = e.UpdatedAt.Add(-time.Minute)

	e.Touch()

	assert.Equal(t, created, e.GetCreatedAt())
	assert.False(t, e.GetUpdatedAt().Before(created))
}
