package services

import (
	"context"
	"log"

	"libraryadmin/internal/models"
	"libraryadmin/internal/session"
	"libraryadmin/internal/validator"
)

// ─── Books ────────────────────────────────────────────────────────────────────

func (s *libraryService) ListBooks(ctx context.Context, sess *session.Session, q ListQuery) (*Page[models.Book], error) {
	api, err := s.collaborator(sess)
	if err != nil {
		return nil, err
	}
	books, err := api.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	books = Filter(books, q.Query, func(b models.Book) []string {
		return []string{b.Title, b.Author, b.Publisher}
	})
	return Paginate(books, q), nil
}

func (s *libraryService) CreateBook(ctx context.Context, sess *session.Session, book models.Book) (*models.Book, error) {
	if errs := validator.ValidateStruct(book); errs != nil {
		return nil, invalidFields(errs)
	}
	api, err := s.collaborator(sess)
	if err != nil {
		return nil, err
	}
	created, err := api.CreateBook(ctx, book)
	if err != nil {
		log.Printf("[ERROR] CreateBook: %q: %v", book.Title, err)
		return nil, err
	}
	log.Printf("[INFO] CreateBook: created book %q (id=%d) with stock %d", created.Title, created.ID, created.Stock)
	return created, nil
}

// UpdateBook holds the book's lock so a manual edit cannot interleave with a
// borrow or return of the same title.
func (s *libraryService) UpdateBook(ctx context.Context, sess *session.Session, book models.Book) error {
	if book.ID == 0 {
		return &fieldError{Fields: []string{"id"}}
	}
	if errs := validator.ValidateStruct(book); errs != nil {
		return invalidFields(errs)
	}
	api, err := s.collaborator(sess)
	if err != nil {
		return err
	}
	unlock, err := s.lock(ctx, bookResource(book.ID))
	if err != nil {
		return err
	}
	defer unlock()

	if err := api.UpdateBook(ctx, book); err != nil {
		log.Printf("[ERROR] UpdateBook: book %d: %v", book.ID, err)
		return err
	}
	log.Printf("[INFO] UpdateBook: book %d updated", book.ID)
	return nil
}

func (s *libraryService) DeleteBook(ctx context.Context, sess *session.Session, id int64) error {
	api, err := s.collaborator(sess)
	if err != nil {
		return err
	}
	unlock, err := s.lock(ctx, bookResource(id))
	if err != nil {
		return err
	}
	defer unlock()

	if err := api.DeleteBook(ctx, id); err != nil {
		log.Printf("[ERROR] DeleteBook: book %d: %v", id, err)
		return err
	}
	log.Printf("[INFO] DeleteBook: book %d deleted", id)
	return nil
}

// ─── Members ──────────────────────────────────────────────────────────────────

func (s *libraryService) ListMembers(ctx context.Context, sess *session.Session, q ListQuery) (*Page[models.Member], error) {
	api, err := s.collaborator(sess)
	if err != nil {
		return nil, err
	}
	members, err := api.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	members = Filter(members, q.Query, func(m models.Member) []string {
		return []string{m.Name, m.Address, m.IDCardNo}
	})
	return Paginate(members, q), nil
}

func (s *libraryService) CreateMember(ctx context.Context, sess *session.Session, member models.Member) (*models.Member, error) {
	if errs := validator.ValidateStruct(member); errs != nil {
		return nil, invalidFields(errs)
	}
	api, err := s.collaborator(sess)
	if err != nil {
		return nil, err
	}
	created, err := api.CreateMember(ctx, member)
	if err != nil {
		log.Printf("[ERROR] CreateMember: %q: %v", member.Name, err)
		return nil, err
	}
	log.Printf("[INFO] CreateMember: created member %q (id=%d)", created.Name, created.ID)
	return created, nil
}

func (s *libraryService) UpdateMember(ctx context.Context, sess *session.Session, member models.Member) error {
	if member.ID == 0 {
		return &fieldError{Fields: []string{"id"}}
	}
	if errs := validator.ValidateStruct(member); errs != nil {
		return invalidFields(errs)
	}
	api, err := s.collaborator(sess)
	if err != nil {
		return err
	}
	if err := api.UpdateMember(ctx, member); err != nil {
		log.Printf("[ERROR] UpdateMember: member %d: %v", member.ID, err)
		return err
	}
	return nil
}

func (s *libraryService) DeleteMember(ctx context.Context, sess *session.Session, id int64) error {
	api, err := s.collaborator(sess)
	if err != nil {
		return err
	}
	if err := api.DeleteMember(ctx, id); err != nil {
		log.Printf("[ERROR] DeleteMember: member %d: %v", id, err)
		return err
	}
	log.Printf("[INFO] DeleteMember: member %d deleted", id)
	return nil
}

// MemberLoans is a member's borrowing history, newest loan first.
func (s *libraryService) MemberLoans(ctx context.Context, sess *session.Session, memberID int64) ([]LoanView, error) {
	api, err := s.collaborator(sess)
	if err != nil {
		return nil, err
	}
	members, err := api.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := findMember(members, memberID); !ok {
		return nil, ErrMemberNotFound
	}
	loans, err := api.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	books, err := api.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	fines, err := api.ListFines(ctx)
	if err != nil {
		return nil, err
	}

	own := make([]models.Loan, 0)
	for _, l := range loans {
		if l.MemberID == memberID {
			own = append(own, l)
		}
	}
	views := newLookup(books, members, fines).loanViews(own)
	newestLoansFirst(views)
	return views, nil
}

// ─── Loans & Fines ────────────────────────────────────────────────────────────

func (s *libraryService) ListLoans(ctx context.Context, sess *session.Session, q ListQuery) (*Page[LoanView], error) {
	api, err := s.collaborator(sess)
	if err != nil {
		return nil, err
	}
	l, loans, err := s.snapshot(ctx, api)
	if err != nil {
		return nil, err
	}
	views := l.loanViews(loans)
	newestLoansFirst(views)
	views = Filter(views, q.Query, func(v LoanView) []string {
		return []string{v.MemberName, v.BookTitle, itoa(v.ID)}
	})
	return Paginate(views, q), nil
}

func (s *libraryService) ListFines(ctx context.Context, sess *session.Session, q ListQuery) (*Page[FineView], error) {
	api, err := s.collaborator(sess)
	if err != nil {
		return nil, err
	}
	fines, err := api.ListFines(ctx)
	if err != nil {
		return nil, err
	}
	books, err := api.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	members, err := api.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	views := newLookup(books, members, fines).fineViews(fines)
	views = Filter(views, q.Query, func(v FineView) []string {
		return []string{itoa(v.ID), itoa(int64(v.Amount)), v.Category, v.Description, v.MemberName, v.BookTitle}
	})
	return Paginate(views, q), nil
}

// snapshot loads everything a loan view needs.
func (s *libraryService) snapshot(ctx context.Context, api Collaborator) (lookup, []models.Loan, error) {
	loans, err := api.ListLoans(ctx)
	if err != nil {
		return lookup{}, nil, err
	}
	books, err := api.ListBooks(ctx)
	if err != nil {
		return lookup{}, nil, err
	}
	members, err := api.ListMembers(ctx)
	if err != nil {
		return lookup{}, nil, err
	}
	fines, err := api.ListFines(ctx)
	if err != nil {
		return lookup{}, nil, err
	}
	return newLookup(books, members, fines), loans, nil
}
