package postgres

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
)

// fakeRow implements pgx.Row for testing, assigning values positionally
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("expected %d destinations, got %d", len(r.values), len(dest))
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case **string:
			if v == nil {
				*d = nil
			} else {
				s := v.(string)
				*d = &s
			}
		case *time.Time:
			*d = v.(time.Time)
		case **time.Time:
			if v == nil {
				*d = nil
			} else {
				t := v.(time.Time)
				*d = &t
			}
		default:
			return fmt.Errorf("unsupported destination %T", dest[i])
		}
	}
	return nil
}

func shiftRowValues() []any {
	return []any{
		"shift-1", "staff-1", "biz-1",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "closed",
		time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
		"1500.00", "100.00", "1200.00", "400.00", "60.00", "40.00",
		"20.00", "8.00", "160.00", "300.00",
	}
}

func TestScanShift_ParsesDecimalsAndOptionals(t *testing.T) {
	shift, err := scanShift(fakeRow{values: shiftRowValues()})
	require.NoError(t, err)

	assert.Equal(t, "shift-1", shift.ID)
	assert.Equal(t, "2024-03-01", shift.ShiftDate)
	assert.Equal(t, model.ShiftClosed, shift.Status)
	require.NotNil(t, shift.ClosedAt)
	assert.True(t, shift.TotalAmount.Equal(decimal.NewFromInt(1500)))
	assert.True(t, shift.SalonShare.Equal(decimal.NewFromInt(400)))
	require.NotNil(t, shift.TopupAmount)
	assert.True(t, shift.TopupAmount.Equal(decimal.NewFromInt(300)))
	require.NotNil(t, shift.HoursWorked)
	assert.Equal(t, "8", shift.HoursWorked.String())
}

func TestScanShift_OpenShiftWithoutRate(t *testing.T) {
	values := shiftRowValues()
	values[4] = "open"
	values[6] = nil
	values[13], values[14], values[15], values[16] = nil, nil, nil, nil

	shift, err := scanShift(fakeRow{values: values})
	require.NoError(t, err)

	assert.True(t, shift.IsOpen())
	assert.Nil(t, shift.ClosedAt)
	assert.Nil(t, shift.HourlyRate)
	assert.Nil(t, shift.GuaranteedAmount)
}

func TestScanShift_BadAmount(t *testing.T) {
	values := shiftRowValues()
	values[7] = "not-a-number"

	_, err := scanShift(fakeRow{values: values})

	assert.ErrorContains(t, err, "failed to parse shift amount")
}

func TestScanShift_PropagatesScanError(t *testing.T) {
	_, err := scanShift(fakeRow{err: fmt.Errorf("no rows in result set")})

	assert.ErrorContains(t, err, "no rows")
}
