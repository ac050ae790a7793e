package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"libraryadmin/internal/models"
	"libraryadmin/internal/session"
)

const (
	recentActivityLimit = 10
	activeMemberWindow  = 30 * 24 * time.Hour
	monthsShown         = 6
)

var monthLabels = [...]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

type Dashboard struct {
	TotalBooks    int            `json:"total_books"`
	TotalStock    int64          `json:"total_stock"`
	Borrowed      int            `json:"borrowed"`
	Available     int            `json:"available"`
	TotalMembers  int            `json:"total_members"`
	ActiveMembers int            `json:"active_members"`
	Monthly       []MonthlyCount `json:"monthly_borrowings"`
	Recent        []Activity     `json:"recent_activities"`
}

type MonthlyCount struct {
	Label string `json:"label"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Count int    `json:"count"`
}

type ActivityType string

const (
	ActivityBorrow ActivityType = "borrow"
	ActivityReturn ActivityType = "return"
)

type Activity struct {
	LoanID     int64        `json:"loan_id"`
	Type       ActivityType `json:"type"`
	Date       models.Date  `json:"date"`
	BookTitle  string       `json:"book_title"`
	MemberName string       `json:"member_name"`
}

func (s *libraryService) Dashboard(ctx context.Context, sess *session.Session) (*Dashboard, error) {
	api, err := s.collaborator(sess)
	if err != nil {
		return nil, err
	}
	books, err := api.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard books: %w", err)
	}
	members, err := api.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard members: %w", err)
	}
	loans, err := api.ListLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard loans: %w", err)
	}
	return buildDashboard(books, members, loans, s.now().In(s.loc)), nil
}

// buildDashboard summarizes the catalog as of now. Borrowed counts
// outstanding loans; available is titles minus borrowed, never below zero.
func buildDashboard(books []models.Book, members []models.Member, loans []models.Loan, now time.Time) *Dashboard {
	d := &Dashboard{
		TotalBooks:   len(books),
		TotalMembers: len(members),
	}
	for _, b := range books {
		d.TotalStock += int64(b.Stock)
	}
	for _, l := range loans {
		if l.IsOutstanding() {
			d.Borrowed++
		}
	}
	d.Available = d.TotalBooks - d.Borrowed
	if d.Available < 0 {
		d.Available = 0
	}

	since := now.Add(-activeMemberWindow)
	for _, m := range members {
		if m.CreatedAt != nil && m.CreatedAt.After(since) {
			d.ActiveMembers++
		}
	}

	d.Monthly = monthlyBorrowings(loans, now)

	l := newLookup(books, members, nil)
	activities := make([]Activity, 0, len(loans))
	for _, loan := range loans {
		a := Activity{
			LoanID:     loan.ID,
			Type:       ActivityBorrow,
			Date:       loan.LoanDate,
			BookTitle:  l.bookTitle(loan.BookID),
			MemberName: l.memberName(loan.MemberID),
		}
		if !loan.IsOutstanding() {
			a.Type = ActivityReturn
			switch {
			case loan.ReturnedAt != nil:
				a.Date = *loan.ReturnedAt
			case loan.UpdatedAt != nil:
				a.Date = *loan.UpdatedAt
			}
		}
		activities = append(activities, a)
	}
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Date.After(activities[j].Date.Time)
	})
	if len(activities) > recentActivityLimit {
		activities = activities[:recentActivityLimit]
	}
	d.Recent = activities
	return d
}

// monthlyBorrowings counts loans by loan month for the last monthsShown
// months, oldest first, ending with the current month.
func monthlyBorrowings(loans []models.Loan, now time.Time) []MonthlyCount {
	type ym struct{ y, m int }
	counts := make(map[ym]int)
	for _, l := range loans {
		if l.LoanDate.IsZero() {
			continue
		}
		counts[ym{l.LoanDate.Year(), int(l.LoanDate.Month())}]++
	}

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]MonthlyCount, 0, monthsShown)
	for i := monthsShown - 1; i >= 0; i-- {
		t := first.AddDate(0, -i, 0)
		k := ym{t.Year(), int(t.Month())}
		out = append(out, MonthlyCount{
			Label: fmt.Sprintf("%s %d", monthLabels[t.Month()-1], t.Year()),
			Year:  k.y,
			Month: k.m,
			Count: counts[k],
		})
	}
	return out
}
