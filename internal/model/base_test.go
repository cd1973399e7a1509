package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDBaseBeforeCreate(t *testing.T) {
	var b UUIDBase
	require.NoError(t, b.BeforeCreate(nil))
	_, err := uuid.Parse(b.ID)
	assert.NoError(t, err)

	preset := UUIDBase{ID: "fixed-id"}
	require.NoError(t, preset.BeforeCreate(nil))
	assert.Equal(t, "fixed-id", preset.ID)
}
