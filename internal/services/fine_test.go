package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"libraryadmin/internal/models"
)

func Test_ComputeFine_Zero_WhenReturnedOnOrBeforeDue(t *testing.T) {
	due := models.MustParseDate("2024-03-08").Time

	for _, ret := range []time.Time{
		due,
		due.Add(-time.Second),
		due.AddDate(0, 0, -30),
	} {
		assert.Zero(t, ComputeFine(due, ret), ret.String())
	}
}

func Test_ComputeFine_ChargesPerDayLate(t *testing.T) {
	due := models.MustParseDate("2024-03-08").Time

	for n := int64(1); n <= 40; n++ {
		ret := due.AddDate(0, 0, int(n))
		assert.Equal(t, n*5000, ComputeFine(due, ret), "n=%d", n)
	}
}

func Test_ComputeFine_CountsPartialDayAsFull(t *testing.T) {
	due := models.MustParseDate("2024-03-08").Time

	assert.Equal(t, int64(5000), ComputeFine(due, due.Add(time.Minute)))
	assert.Equal(t, int64(10000), ComputeFine(due, due.Add(25*time.Hour)))
}

func Test_ComputeFine_IsDeterministic(t *testing.T) {
	due := models.MustParseDate("2024-03-08").Time
	ret := due.Add(50 * time.Hour)

	first := ComputeFine(due, ret)
	second := ComputeFine(due, ret)

	assert.Equal(t, first, second)
	assert.Equal(t, models.MustParseDate("2024-03-08").Time, due)
}

func Test_FormatRupiah(t *testing.T) {
	assert.Equal(t, "0", FormatRupiah(0))
	assert.Equal(t, "5.000", FormatRupiah(5000))
	assert.Equal(t, "150.000", FormatRupiah(150000))
	assert.Equal(t, "1.250.000", FormatRupiah(1250000))
}

func Test_PreviewFine(t *testing.T) {
	svc := NewLibraryService(nil, nil, nil, nil)

	returned := models.MustParseDate("2024-03-11")

	p := svc.PreviewFine(models.MustParseDate("2024-03-08"), &returned)

	assert.Equal(t, FinePreview{DaysLate: 3, Amount: 15000, Formatted: "Rp 15.000"}, p)
}

func Test_PreviewFine_NoFine_OnDueDate_WhenReturnedOmitted(t *testing.T) {
	// arrange: 16:00 local on the due date
	jakarta := time.FixedZone("WIB", 7*3600)
	now := time.Date(2024, 3, 8, 16, 0, 0, 0, jakarta)
	svc := NewLibraryService(nil, nil, nil, nil, WithClock(func() time.Time { return now }), WithLocation(jakarta))

	// act
	p := svc.PreviewFine(models.MustParseDate("2024-03-08"), nil)

	// assert
	assert.Equal(t, FinePreview{DaysLate: 0, Amount: 0, Formatted: "Rp 0"}, p)
}

func Test_PreviewFine_UsesLocalDate_WhenReturnedOmitted(t *testing.T) {
	// arrange: 20:00 UTC on the due date is already the next day in Jakarta
	jakarta := time.FixedZone("WIB", 7*3600)
	now := time.Date(2024, 3, 8, 20, 0, 0, 0, time.UTC)
	svc := NewLibraryService(nil, nil, nil, nil, WithClock(func() time.Time { return now }), WithLocation(jakarta))

	// act
	p := svc.PreviewFine(models.MustParseDate("2024-03-08"), nil)

	// assert
	assert.Equal(t, int64(1), p.DaysLate)
	assert.Equal(t, "Rp 5.000", p.Formatted)
}
