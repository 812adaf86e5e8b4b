package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "kaku/pkg/errors"
)

type sample struct {
	Name       string   `json:"name" validate:"required,max=5"`
	UniverseID string   `json:"universe_id" validate:"required,uuid"`
	Tags       []string `json:"tags" validate:"max=2"`
}

func TestValidateStruct(t *testing.T) {
	err := ValidateStruct(sample{Name: "toolong", UniverseID: "x", Tags: []string{"a", "b", "c"}})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	msg := pkgerrors.GetAppError(err).Message
	assert.Contains(t, msg, "name must be at most 5")
	assert.Contains(t, msg, "universe_id must be a valid UUID")
	assert.Contains(t, msg, "tags must be at most 2")
}

func TestValidateStructOK(t *testing.T) {
	assert.NoError(t, ValidateStruct(sample{Name: "life", UniverseID: "6f1c1a1e-5f7a-4bb0-9a43-8c1b0d8f4b10"}))
}

func TestNowIsUTCMillis(t *testing.T) {
	n := Now()
	assert.Equal(t, 0, n.Nanosecond()%1e6)
	assert.Equal(t, "UTC", n.Location().String())
}
