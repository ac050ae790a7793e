package services

import (
	"sort"
	"strconv"
	"strings"

	"libraryadmin/internal/models"
)

const (
	DefaultPerPage = 5
	MaxPerPage     = 100
)

// ListQuery is a free-text search plus a 1-based page.
type ListQuery struct {
	Query   string
	Page    int
	PerPage int
}

func (q ListQuery) normalized() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	q.Query = strings.ToLower(strings.TrimSpace(q.Query))
	return q
}

type Page[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Paginate slices items for q. A page past the end comes back empty.
func Paginate[T any](items []T, q ListQuery) *Page[T] {
	q = q.normalized()
	total := len(items)
	pages := (total + q.PerPage - 1) / q.PerPage

	start := (q.Page - 1) * q.PerPage
	if start > total {
		start = total
	}
	end := start + q.PerPage
	if end > total {
		end = total
	}
	data := make([]T, end-start)
	copy(data, items[start:end])

	return &Page[T]{Data: data, Page: q.Page, PerPage: q.PerPage, Total: total, TotalPages: pages}
}

// Filter keeps the items for which any of fields contains the lowercased
// query. An empty query keeps everything.
func Filter[T any](items []T, query string, fields func(T) []string) []T {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		for _, f := range fields(it) {
			if strings.Contains(strings.ToLower(f), query) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// ─── Views ────────────────────────────────────────────────────────────────────

const (
	unknownBook   = "Buku tidak ditemukan"
	unknownMember = "Member tidak ditemukan"
)

// LoanView is a loan joined with its book title, member name and the total
// of the fine records issued for it.
type LoanView struct {
	models.Loan
	BookTitle  string `json:"judul"`
	MemberName string `json:"nama"`
	FineTotal  int64  `json:"total_denda"`
}

type FineView struct {
	models.Fine
	BookTitle  string `json:"judul"`
	MemberName string `json:"nama"`
}

type lookup struct {
	books   map[int64]models.Book
	members map[int64]models.Member
	fines   map[int64]int64
}

func newLookup(books []models.Book, members []models.Member, fines []models.Fine) lookup {
	l := lookup{
		books:   make(map[int64]models.Book, len(books)),
		members: make(map[int64]models.Member, len(members)),
		fines:   make(map[int64]int64),
	}
	for _, b := range books {
		l.books[b.ID] = b
	}
	for _, m := range members {
		l.members[m.ID] = m
	}
	for _, f := range fines {
		l.fines[f.LoanID] += int64(f.Amount)
	}
	return l
}

func (l lookup) bookTitle(id int64) string {
	if b, ok := l.books[id]; ok {
		return b.Title
	}
	return unknownBook
}

func (l lookup) memberName(id int64) string {
	if m, ok := l.members[id]; ok {
		return m.Name
	}
	return unknownMember
}

func (l lookup) loanViews(loans []models.Loan) []LoanView {
	out := make([]LoanView, 0, len(loans))
	for _, loan := range loans {
		out = append(out, LoanView{
			Loan:       loan,
			BookTitle:  l.bookTitle(loan.BookID),
			MemberName: l.memberName(loan.MemberID),
			FineTotal:  l.fines[loan.ID],
		})
	}
	return out
}

func (l lookup) fineViews(fines []models.Fine) []FineView {
	out := make([]FineView, 0, len(fines))
	for _, f := range fines {
		out = append(out, FineView{
			Fine:       f,
			BookTitle:  l.bookTitle(f.BookID),
			MemberName: l.memberName(f.MemberID),
		})
	}
	return out
}

// newestLoansFirst orders by loan date, then id, descending.
func newestLoansFirst(views []LoanView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].LoanDate, views[j].LoanDate
		if !a.Equal(b.Time) {
			return a.After(b.Time)
		}
		return views[i].ID > views[j].ID
	})
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
