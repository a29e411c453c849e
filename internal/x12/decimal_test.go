package x12_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/pulsepipe/ingest/internal/x12"
)

func TestParseX12DecimalImpliedPlaces(t *testing.T) {
	d, warned := x12.ParseX12Decimal("1500", 2)
	assert.False(t, warned)
	assert.True(t, d.Equal(decimal.RequireFromString("15.00")))
}

func TestParseX12DecimalExplicitPoint(t *testing.T) {
	d, warned := x12.ParseX12Decimal("15.00", 2)
	assert.False(t, warned)
	assert.True(t, d.Equal(decimal.RequireFromString("15.00")))
}

func TestParseX12DecimalEmptyIsZero(t *testing.T) {
	d, warned := x12.ParseX12Decimal("", 2)
	assert.False(t, warned)
	assert.True(t, d.Equal(decimal.Zero))
}

func TestParseX12DecimalMalformedWarnsAndZeros(t *testing.T) {
	d, warned := x12.ParseX12Decimal("not-a-number", 2)
	assert.True(t, warned)
	assert.True(t, d.Equal(decimal.Zero))
}
