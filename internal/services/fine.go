package services

import (
	"math"
	"strconv"
	"time"

	"libraryadmin/internal/models"
)

// ─── Fine Calculation ─────────────────────────────────────────────────────────

const (
	// LoanPeriodDays is the default gap between loan date and due date.
	LoanPeriodDays = 7

	// FinePerDay is charged for every started day past the due date.
	FinePerDay int64 = 5000
)

// DaysLate counts the days between due and returned, rounding a partial day
// up. It is 0 when returned is not after due.
func DaysLate(due, returned time.Time) int64 {
	if !returned.After(due) {
		return 0
	}
	days := returned.Sub(due).Hours() / 24
	return int64(math.Ceil(days))
}

// ComputeFine returns the late fee for an item due at due and returned at
// returned.
func ComputeFine(due, returned time.Time) int64 {
	return DaysLate(due, returned) * FinePerDay
}

type FinePreview struct {
	DaysLate  int64  `json:"days_late"`
	Amount    int64  `json:"amount"`
	Formatted string `json:"formatted"`
}

// PreviewFine prices a return on returned, or today when returned is nil,
// the same way ReturnLoan would.
func (s *libraryService) PreviewFine(due models.Date, returned *models.Date) FinePreview {
	on := s.today()
	if returned != nil && !returned.IsZero() {
		on = *returned
	}
	amount := ComputeFine(due.Time, on.Time)
	return FinePreview{
		DaysLate:  DaysLate(due.Time, on.Time),
		Amount:    amount,
		Formatted: "Rp " + FormatRupiah(amount),
	}
}

// FormatRupiah writes n with dots as thousands separators (15000 -> 15.000).
func FormatRupiah(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	out := make([]byte, 0, len(digits)+len(digits)/3+1)
	if neg {
		out = append(out, '-')
	}
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, digits[i])
	}
	return string(out)
}
