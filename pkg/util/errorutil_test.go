package util

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassesThroughDomainErrors(t *testing.T) {
	err := NewIllegalTransition("approve", "LODGED")
	converted := ToDomainError(err)
	assert.Equal(t, CodeIllegalTransition, converted.Code)
	assert.Equal(t, http.StatusConflict, converted.HTTPStatus)
}

func TestToDomainErrorMapsFiberErrors(t *testing.T) {
	tests := []struct {
		status   int
		wantCode string
	}{
		{http.StatusUnauthorized, CodeUnauthorized},
		{http.StatusForbidden, CodeForbidden},
		{http.StatusNotFound, CodeNotFound},
		{http.StatusBadRequest, CodeValidation},
		{http.StatusConflict, CodeConflict},
		{http.StatusTeapot, CodeInternal},
	}
	for _, tc := range tests {
		converted := ToDomainError(fiber.NewError(tc.status, "nope"))
		assert.Equal(t, tc.wantCode, converted.Code)
		assert.Equal(t, tc.status, converted.HTTPStatus, "route-level rejections keep their status")
	}
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	converted := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, CodeNotFound, converted.Code)
	assert.Equal(t, http.StatusNotFound, converted.HTTPStatus)
}

func TestToDomainErrorDefaultsToInternal(t *testing.T) {
	converted := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, converted.Code)
	assert.Equal(t, http.StatusInternalServerError, converted.HTTPStatus)
}

func TestIsCode(t *testing.T) {
	err := NewConcurrencyConflict("ticket-1")
	require.True(t, IsCode(err, CodeConflict))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(errors.New("plain"), CodeConflict))
}
