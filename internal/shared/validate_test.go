package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string  `json:"username" validate:"required,min=3"`
	Email    string  `json:"email" validate:"required,email"`
	RoleID   *string `json:"role_id" validate:"omitempty,uuid"`
}

func TestValidatorStructNamesJSONFields(t *testing.T) {
	v := NewValidator()
	bad := "nope"
	err := v.Struct(signup{Username: "ab", Email: "x", RoleID: &bad})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "must be at least 3 characters long", verr.Fields["username"])
	assert.Equal(t, "must be a valid email address", verr.Fields["email"])
	assert.Equal(t, "must be a valid UUID", verr.Fields["role_id"])
}

func TestValidatorStructPasses(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.Struct(signup{Username: "alice", Email: "alice@example.com"}))
}

func TestValidatorVar(t *testing.T) {
	v := NewValidator()
	err := v.Var("password", "", "required,min=6")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{"password": "is required"}, verr.Fields)
	require.NoError(t, v.Var("password", "secret1", "required,min=6"))
}

func TestMergeKeepsFirstMessage(t *testing.T) {
	err := Merge(nil, NewValidationError("name", "first"), NewValidationError("name", "second"), NewValidationError("id", "bad"))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{"name": "first", "id": "bad"}, verr.Fields)

	assert.NoError(t, Merge(nil, nil))

	boom := errors.New("boom")
	assert.Equal(t, boom, Merge(NewValidationError("a", "b"), boom))
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("id", "8d0b6a6e-0c0f-4d7e-9b7e-6f4f2b8f1d2a"))
	assert.Error(t, ValidateID("id", "not-a-uuid"))
	assert.Error(t, ValidateID("id", "8d0b6a6e0c0f4d7e9b7e6f4f2b8f1d2a"))
	assert.Error(t, ValidateID("id", ""))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "café", NormalizeText("  café "))
	assert.Nil(t, NormalizeOptional(nil))
	blank := "   "
	assert.Nil(t, NormalizeOptional(&blank))
	desc := " admins "
	assert.Equal(t, "admins", *NormalizeOptional(&desc))
}

func TestValidatorMaxBytesCountsEncodedLength(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.Var("password", "ééé", "maxbytes=6"))

	err := v.Var("password", "éééé", "maxbytes=6")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must be at most 6 bytes long", verr.Fields["password"])
}
