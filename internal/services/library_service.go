package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"libraryadmin/internal/events"
	"libraryadmin/internal/models"
	"libraryadmin/internal/repositories"
	"libraryadmin/internal/session"
	"libraryadmin/internal/validator"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrMissingSelection is returned when a loan is requested without a member
	// or without a book.
	ErrMissingSelection = errors.New("member and book must be selected")

	// ErrBookNotFound is returned when the book is not in the current catalog.
	ErrBookNotFound = errors.New("book not found")

	// ErrStockExhausted is returned when the book has no copies left. The
	// concrete error also carries the title.
	ErrStockExhausted = errors.New("book out of stock")

	ErrNilLoan            = errors.New("no loan given")
	ErrLoanNotOutstanding = errors.New("loan already returned")
	ErrLoanNotFound       = errors.New("loan not found")
	ErrMemberNotFound     = errors.New("member not found")

	// ErrBusy is returned when another lifecycle operation holds the same book
	// or loan.
	ErrBusy = errors.New("another operation on this book or loan is in progress")

	ErrInvalidInput    = errors.New("invalid input")
	ErrDueBeforeLoan   = fmt.Errorf("%w: due date is before loan date", ErrInvalidInput)
	ErrNoSession       = errors.New("no session")
	ErrJournalDisabled = errors.New("saga journal is not configured")
	ErrSagaRunNotFound = errors.New("saga run not found")
	ErrSagaNotPartial  = errors.New("saga run is not partial")
)

type stockExhaustedError struct {
	Title string
}

func (e *stockExhaustedError) Error() string {
	return fmt.Sprintf("book %q out of stock", e.Title)
}

func (e *stockExhaustedError) Is(target error) bool { return target == ErrStockExhausted }

// fieldError names the request fields that failed validation, by their wire
// names.
type fieldError struct {
	Fields []string
}

func (e *fieldError) Error() string {
	return "invalid input: " + strings.Join(e.Fields, ", ")
}

func (e *fieldError) Is(target error) bool { return target == ErrInvalidInput }

func invalidFields(errs []*validator.ErrorResponse) error {
	return &fieldError{Fields: validator.Fields(errs)}
}

// ─── Collaborator ─────────────────────────────────────────────────────────────

// Collaborator is the system-of-record API as seen by one session.
type Collaborator interface {
	ListBooks(ctx context.Context) ([]models.Book, error)
	CreateBook(ctx context.Context, book models.Book) (*models.Book, error)
	UpdateBook(ctx context.Context, book models.Book) error
	DeleteBook(ctx context.Context, id int64) error

	ListMembers(ctx context.Context) ([]models.Member, error)
	CreateMember(ctx context.Context, member models.Member) (*models.Member, error)
	UpdateMember(ctx context.Context, member models.Member) error
	DeleteMember(ctx context.Context, id int64) error

	ListLoans(ctx context.Context) ([]models.Loan, error)
	CreateLoan(ctx context.Context, loan models.NewLoan) (*models.Loan, error)
	ReturnLoan(ctx context.Context, loanID int64, ret models.LoanReturn) error

	ListFines(ctx context.Context) ([]models.Fine, error)
	CreateFine(ctx context.Context, fine models.Fine) (*models.Fine, error)
}

// CollaboratorFunc binds the collaborator API to a session's credential.
type CollaboratorFunc func(s *session.Session) Collaborator

// ─── Service Interface ────────────────────────────────────────────────────────

// LibraryService is everything the admin surface can do. Every operation that
// reaches the collaborator takes the caller's session explicitly.
type LibraryService interface {
	CreateLoan(ctx context.Context, s *session.Session, req CreateLoanRequest) (*LoanResult, error)
	ReturnLoan(ctx context.Context, s *session.Session, loan *models.Loan) (*LoanResult, error)
	ReturnLoanByID(ctx context.Context, s *session.Session, loanID int64) (*LoanResult, error)
	PreviewFine(due models.Date, returned *models.Date) FinePreview

	ListBooks(ctx context.Context, s *session.Session, q ListQuery) (*Page[models.Book], error)
	CreateBook(ctx context.Context, s *session.Session, book models.Book) (*models.Book, error)
	UpdateBook(ctx context.Context, s *session.Session, book models.Book) error
	DeleteBook(ctx context.Context, s *session.Session, id int64) error

	ListMembers(ctx context.Context, s *session.Session, q ListQuery) (*Page[models.Member], error)
	CreateMember(ctx context.Context, s *session.Session, member models.Member) (*models.Member, error)
	UpdateMember(ctx context.Context, s *session.Session, member models.Member) error
	DeleteMember(ctx context.Context, s *session.Session, id int64) error
	MemberLoans(ctx context.Context, s *session.Session, memberID int64) ([]LoanView, error)

	ListLoans(ctx context.Context, s *session.Session, q ListQuery) (*Page[LoanView], error)
	ListFines(ctx context.Context, s *session.Session, q ListQuery) (*Page[FineView], error)
	Dashboard(ctx context.Context, s *session.Session) (*Dashboard, error)

	ListSagas(ctx context.Context, status models.SagaStatus, limit int) ([]models.SagaRun, error)
	ResolveSaga(ctx context.Context, s *session.Session, id uuid.UUID) (*models.SagaRun, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type libraryService struct {
	api       CollaboratorFunc
	sagaRepo  repositories.SagaRepository
	guard     Guard
	publisher events.Publisher
	now       func() time.Time
	loc       *time.Location
}

type Option func(*libraryService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *libraryService) { s.now = now }
}

// WithLocation sets the zone in which "today" is decided.
func WithLocation(loc *time.Location) Option {
	return func(s *libraryService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewLibraryService wires the service. sagaRepo may be nil, in which case
// runs are not journaled; guard and publisher default to in-process
// implementations.
func NewLibraryService(
	api CollaboratorFunc,
	sagaRepo repositories.SagaRepository,
	guard Guard,
	publisher events.Publisher,
	opts ...Option,
) LibraryService {
	s := &libraryService{
		api:       api,
		sagaRepo:  sagaRepo,
		guard:     guard,
		publisher: publisher,
		now:       time.Now,
		loc:       time.UTC,
	}
	if s.guard == nil {
		s.guard = NewLocalGuard()
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *libraryService) collaborator(sess *session.Session) (Collaborator, error) {
	if sess == nil {
		return nil, ErrNoSession
	}
	return s.api(sess), nil
}

// today is the current calendar date in the configured zone.
func (s *libraryService) today() models.Date {
	return models.DateOf(s.now().In(s.loc))
}

func findBook(books []models.Book, id int64) (models.Book, bool) {
	for _, b := range books {
		if b.ID == id {
			return b, true
		}
	}
	return models.Book{}, false
}

func findMember(members []models.Member, id int64) (models.Member, bool) {
	for _, m := range members {
		if m.ID == id {
			return m, true
		}
	}
	return models.Member{}, false
}
