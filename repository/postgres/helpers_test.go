package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNullTime(t *testing.T) {
	assert.Nil(t, nullTime(time.Time{}))

	since := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, since, nullTime(since))
}

func TestNullableCountersMapToZero(t *testing.T) {
	count := int64(42)
	rate := 0.25

	assert.Zero(t, int64OrZero(nil))
	assert.Equal(t, int64(42), int64OrZero(&count))
	assert.Zero(t, float64OrZero(nil))
	assert.Equal(t, 0.25, float64OrZero(&rate))
}
