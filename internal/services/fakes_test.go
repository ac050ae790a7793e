package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libraryadmin/internal/models"
	"libraryadmin/internal/repositories"
	"libraryadmin/internal/session"
)

var errUpstream = errors.New("upstream unavailable")

type call struct {
	op   string
	book *models.Book
	loan *models.NewLoan
	ret  *models.LoanReturn
	fine *models.Fine
	id   int64
}

// fakeCollaborator is an in-memory collaborator that records every call.
type fakeCollaborator struct {
	mu      sync.Mutex
	books   []models.Book
	members []models.Member
	loans   []models.Loan
	fines   []models.Fine
	calls   []call
	failOn  map[string]error
	nextID  int64
}

func newFakeCollaborator() *fakeCollaborator {
	return &fakeCollaborator{failOn: map[string]error{}, nextID: 100}
}

func (f *fakeCollaborator) record(c call) error {
	f.calls = append(f.calls, c)
	return f.failOn[c.op]
}

func (f *fakeCollaborator) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.op)
	}
	return out
}

// mutations drops the reads from the call log.
func (f *fakeCollaborator) mutations() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		switch c.op {
		case "ListBooks", "ListMembers", "ListLoans", "ListFines":
			continue
		}
		out = append(out, c)
	}
	return out
}

func (f *fakeCollaborator) book(id int64) models.Book {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, _ := findBook(f.books, id)
	return b
}

func (f *fakeCollaborator) ListBooks(context.Context) ([]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(call{op: "ListBooks"}); err != nil {
		return nil, err
	}
	return append([]models.Book(nil), f.books...), nil
}

func (f *fakeCollaborator) CreateBook(_ context.Context, b models.Book) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(call{op: "CreateBook", book: &b}); err != nil {
		return nil, err
	}
	f.nextID++
	b.ID = f.nextID
	f.books = append(f.books, b)
	return &b, nil
}

func (f *fakeCollaborator) UpdateBook(_ context.Context, b models.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(call{op: "UpdateBook", book: &b}); err != nil {
		return err
	}
	for i := range f.books {
		if f.books[i].ID == b.ID {
			f.books[i] = b
			return nil
		}
	}
	return fmt.Errorf("book %d: not found", b.ID)
}

func (f *fakeCollaborator) DeleteBook(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record(call{op: "DeleteBook", id: id})
}

func (f *fakeCollaborator) ListMembers(context.Context) ([]models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(call{op: "ListMembers"}); err != nil {
		return nil, err
	}
	return append([]models.Member(nil), f.members...), nil
}

func (f *fakeCollaborator) CreateMember(_ context.Context, m models.Member) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(call{op: "CreateMember"}); err != nil {
		return nil, err
	}
	f.nextID++
	m.ID = f.nextID
	f.members = append(f.members, m)
	return &m, nil
}

func (f *fakeCollaborator) UpdateMember(_ context.Context, m models.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record(call{op: "UpdateMember", id: m.ID})
}

func (f *fakeCollaborator) DeleteMember(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record(call{op: "DeleteMember", id: id})
}

func (f *fakeCollaborator) ListLoans(context.Context) ([]models.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(call{op: "ListLoans"}); err != nil {
		return nil, err
	}
	return append([]models.Loan(nil), f.loans...), nil
}

func (f *fakeCollaborator) CreateLoan(_ context.Context, nl models.NewLoan) (*models.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(call{op: "CreateLoan", loan: &nl}); err != nil {
		return nil, err
	}
	f.nextID++
	loan := models.Loan{
		ID:       f.nextID,
		BookID:   nl.BookID,
		MemberID: nl.MemberID,
		LoanDate: nl.LoanDate,
		DueDate:  nl.DueDate,
		Status:   nl.Status,
	}
	f.loans = append(f.loans, loan)
	return &loan, nil
}

func (f *fakeCollaborator) ReturnLoan(_ context.Context, id int64, ret models.LoanReturn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(call{op: "ReturnLoan", id: id, ret: &ret}); err != nil {
		return err
	}
	for i := range f.loans {
		if f.loans[i].ID == id {
			f.loans[i].Status = ret.Status
			d := ret.ReturnDate
			f.loans[i].ReturnedAt = &d
			if ret.Fine != nil {
				n := models.NumString(*ret.Fine)
				f.loans[i].FineAmount = &n
			}
		}
	}
	return nil
}

func (f *fakeCollaborator) ListFines(context.Context) ([]models.Fine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(call{op: "ListFines"}); err != nil {
		return nil, err
	}
	return append([]models.Fine(nil), f.fines...), nil
}

func (f *fakeCollaborator) CreateFine(_ context.Context, fine models.Fine) (*models.Fine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(call{op: "CreateFine", fine: &fine}); err != nil {
		return nil, err
	}
	f.nextID++
	fine.ID = f.nextID
	f.fines = append(f.fines, fine)
	return &fine, nil
}

// fakeSagaRepo is an in-memory journal.
type fakeSagaRepo struct {
	mu        sync.Mutex
	runs      map[uuid.UUID]*models.SagaRun
	lastLimit int
}

var _ repositories.SagaRepository = (*fakeSagaRepo)(nil)

func newFakeSagaRepo() *fakeSagaRepo {
	return &fakeSagaRepo{runs: map[uuid.UUID]*models.SagaRun{}}
}

func (r *fakeSagaRepo) CreateRun(_ *gorm.DB, run *models.SagaRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

func (r *fakeSagaRepo) AppendStep(_ *gorm.DB, step *models.SagaStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[step.SagaRunID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	run.Steps = append(run.Steps, *step)
	return nil
}

func (r *fakeSagaRepo) FinishRun(_ *gorm.DB, id uuid.UUID, status models.SagaStatus, failedStep, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok || run.Status != models.SagaStatusRunning {
		return nil
	}
	run.Status, run.FailedStep, run.Error, run.FinishedAt = status, failedStep, errMsg, &at
	return nil
}

func (r *fakeSagaRepo) GetByID(_ *gorm.DB, id uuid.UUID) (*models.SagaRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *run
	return &cp, nil
}

func (r *fakeSagaRepo) ListRuns(_ *gorm.DB, status models.SagaStatus, limit int) ([]models.SagaRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimit = limit
	var out []models.SagaRun
	for _, run := range r.runs {
		if status == "" || run.Status == status {
			out = append(out, *run)
		}
	}
	return out, nil
}

func (r *fakeSagaRepo) MarkResolved(_ *gorm.DB, id uuid.UUID, by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok || run.Status != models.SagaStatusPartial {
		return gorm.ErrRecordNotFound
	}
	run.Status, run.ResolvedBy = models.SagaStatusResolved, by
	return nil
}

type published struct {
	eventType     string
	correlationID string
	payload       any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) Publish(_ context.Context, eventType, correlationID string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{eventType, correlationID, payload})
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

type fixture struct {
	api       *fakeCollaborator
	journal   *fakeSagaRepo
	publisher *fakePublisher
	guard     *LocalGuard
	svc       LibraryService
	sess      *session.Session
	now       time.Time
}

func newFixture(today string) *fixture {
	f := &fixture{
		api:       newFakeCollaborator(),
		journal:   newFakeSagaRepo(),
		publisher: &fakePublisher{},
		guard:     NewLocalGuard(),
		sess:      &session.Session{ID: "s1", Token: "tok", Email: "pustakawan@perpus.id"},
		now:       models.MustParseDate(today).Add(10 * time.Hour),
	}
	f.svc = NewLibraryService(
		func(*session.Session) Collaborator { return f.api },
		f.journal,
		f.guard,
		f.publisher,
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func (f *fixture) onlyRun() *models.SagaRun {
	runs, _ := f.journal.ListRuns(nil, "", 0)
	if len(runs) != 1 {
		return nil
	}
	return &runs[0]
}

func datePtr(s string) *models.Date {
	d := models.MustParseDate(s)
	return &d
}
