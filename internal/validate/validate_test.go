package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzan03/coursehub/internal/apperr"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,bcryptlen"`
	Role     string `json:"role" validate:"omitempty,role"`
	CourseID string `json:"course_id" validate:"omitempty,objectid"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(signup{Email: "nope", Password: "short", Role: "root", CourseID: "xyz"})
	require.Error(t, err)

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")
	assert.Contains(t, ve.Fields, "password")
	assert.Equal(t, "role must be one of user, staff, facilitator, admin, super_admin", ve.Fields["role"])
	assert.Equal(t, "course_id must be a valid id", ve.Fields["course_id"])
}

func TestStructAcceptsValidInput(t *testing.T) {
	assert.NoError(t, Struct(signup{
		Email:    "ada@example.com",
		Password: "correct horse",
		Role:     "facilitator",
		CourseID: "65f1a2b3c4d5e6f708192a3b",
	}))
}

func TestPasswordLengthCountsBytes(t *testing.T) {
	in := signup{Email: "ada@example.com", Password: strings.Repeat("é", 40)}
	err := Struct(in)

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password must be at most 72 bytes", ve.Fields["password"])

	in.Password = strings.Repeat("é", 36)
	assert.NoError(t, Struct(in))
}
