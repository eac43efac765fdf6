package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := errors.New(`ERROR: duplicate key value violates unique constraint "ux_commission_records_order_member" (SQLSTATE 23505)`)
	sqliteErr := errors.New("UNIQUE constraint failed: orders.tracking_number")

	assert.True(t, IsUniqueViolation(pgErr, ""))
	assert.True(t, IsUniqueViolation(pgErr, "ux_commission_records_order_member"))
	assert.False(t, IsUniqueViolation(pgErr, "ux_other_constraint"))
	assert.True(t, IsUniqueViolation(sqliteErr, ""))
	assert.False(t, IsUniqueViolation(nil, ""))
	assert.False(t, IsUniqueViolation(errors.New("connection refused"), ""))
}
