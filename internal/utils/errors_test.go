package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	t.Run("With field", func(t *testing.T) {
		err := &ValidationError{Field: "email", Message: "must be a valid email address"}

		assert.Equal(t, "validation error on field 'email': must be a valid email address", err.Error())
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("Without field", func(t *testing.T) {
		err := &ValidationError{Message: "input is invalid"}

		assert.Equal(t, "validation error: input is invalid", err.Error())
		assert.Equal(t, ErrValidation, err.Unwrap())
	})
}

func TestNotFoundError(t *testing.T) {
	assert.Equal(t, "User with ID '123' not found", (&NotFoundError{Resource: "User", ID: "123"}).Error())
	assert.Equal(t, "User not found", (&NotFoundError{Resource: "User"}).Error())
	assert.True(t, errors.Is(WrapNotFoundError("User", "1"), ErrNotFound))
}

func TestConflictError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConflictError
		expected string
	}{
		{
			name:     "field and value",
			err:      &ConflictError{Resource: "user", Field: "email", Value: "a@b.c"},
			expected: "user already exists with email='a@b.c'",
		},
		{
			name:     "field only",
			err:      &ConflictError{Resource: "user", Field: "email"},
			expected: "user already exists",
		},
		{
			name:     "resource only",
			err:      &ConflictError{Resource: "user"},
			expected: "user already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.True(t, errors.Is(tt.err, ErrConflict))
		})
	}
}

func TestDatabaseError(t *testing.T) {
	t.Run("With cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := WrapDatabaseError("create user", cause)

		assert.Equal(t, "database error during create user: connection refused", err.Error())
		assert.True(t, errors.Is(err, ErrDatabase))
		assert.True(t, errors.Is(err, cause), "driver error must stay reachable")

		var dbErr *DatabaseError
		assert.True(t, errors.As(err, &dbErr))
		assert.Equal(t, "create user", dbErr.Operation)
	})

	t.Run("Without cause", func(t *testing.T) {
		err := &DatabaseError{Operation: "list users"}

		assert.Equal(t, "database error during list users", err.Error())
		assert.Equal(t, []error{ErrDatabase}, err.Unwrap())
	})
}

func TestErrorPredicates(t *testing.T) {
	validation := WrapValidationError("field", "message")
	notFound := WrapNotFoundError("resource", "id")
	conflict := WrapConflictError("resource", "field", "value")
	database := WrapDatabaseError("op", errors.New("cause"))

	assert.True(t, IsValidationError(validation))
	assert.False(t, IsValidationError(notFound))
	assert.True(t, IsNotFoundError(notFound))
	assert.False(t, IsNotFoundError(conflict))
	assert.True(t, IsConflictError(conflict))
	assert.False(t, IsConflictError(database))
	assert.True(t, IsDatabaseError(database))
	assert.False(t, IsDatabaseError(validation))

	for _, check := range []func(error) bool{IsValidationError, IsNotFoundError, IsConflictError, IsDatabaseError} {
		assert.False(t, check(nil))
		assert.False(t, check(errors.New("generic")))
	}
}

func TestStatusCodeAndCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "validation",
			err:        WrapValidationError("id", "Invalid User ID format"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   CodeValidation,
			wantMsg:    "Invalid User ID format",
		},
		{
			name:       "not found",
			err:        WrapNotFoundError("User", "42"),
			wantStatus: http.StatusNotFound,
			wantCode:   CodeNotFound,
			wantMsg:    "User not found",
		},
		{
			name:       "conflict",
			err:        WrapConflictError("User", "email", "a@b.c"),
			wantStatus: http.StatusConflict,
			wantCode:   CodeDuplicate,
			wantMsg:    "A record with this information already exists",
		},
		{
			name:       "database",
			err:        WrapDatabaseError("get user", errors.New("dial tcp: connection refused")),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   CodeUnavailable,
			wantMsg:    "Service temporarily unavailable. Please try again later.",
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("update: %w", WrapNotFoundError("User", "1")),
			wantStatus: http.StatusNotFound,
			wantCode:   CodeNotFound,
			wantMsg:    "User not found",
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, StatusCode(tt.err))
			assert.Equal(t, tt.wantCode, Code(tt.err))
			assert.Equal(t, tt.wantMsg, PublicMessage(tt.err))
		})
	}

	assert.Equal(t, http.StatusOK, StatusCode(nil))
}

func TestFieldErrorHelpers(t *testing.T) {
	err := RequiredFieldError("email")
	assert.Equal(t, "validation error on field 'email': field is required", err.Error())

	err = InvalidFieldError("steps", "must be a positive integer")
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "steps", validationErr.Field)
	assert.Equal(t, "must be a positive integer", validationErr.Message)
}
