package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"libraryadmin/internal/events"
	"libraryadmin/internal/models"
	"libraryadmin/internal/session"
	"libraryadmin/internal/validator"
)

const (
	sagaCreateLoan = "create_loan"
	sagaReturnLoan = "return_loan"

	stepCreateLoan     = "create_loan"
	stepDecrementStock = "decrement_stock"
	stepCreateFine     = "create_fine"
	stepMarkReturned   = "mark_returned"
	stepIncrementStock = "increment_stock"
)

// CreateLoanRequest asks to lend a book to a member. Dates are optional:
// the loan date defaults to today and the due date to LoanPeriodDays later.
type CreateLoanRequest struct {
	MemberID models.Int   `json:"id_member" validate:"required"`
	BookID   models.Int   `json:"id_buku" validate:"required"`
	LoanDate *models.Date `json:"tgl_pinjam,omitempty"`
	DueDate  *models.Date `json:"tgl_pengembalian,omitempty"`
}

// LoanResult describes a completed lifecycle operation.
type LoanResult struct {
	SagaID   uuid.UUID    `json:"saga_id"`
	Loan     *models.Loan `json:"loan"`
	Book     models.Book  `json:"book"`
	Fine     *models.Fine `json:"fine,omitempty"`
	DaysLate int64        `json:"days_late"`
	Message  string       `json:"message"`
}

// ─── Borrow ───────────────────────────────────────────────────────────────────

// CreateLoan records a loan and then takes one copy off the book's stock.
// Nothing is sent to the collaborator unless a member and an in-stock book
// were given. If the stock update fails the loan stays recorded and a
// partial StepError is returned.
func (s *libraryService) CreateLoan(ctx context.Context, sess *session.Session, req CreateLoanRequest) (*LoanResult, error) {
	if errs := validator.ValidateStruct(req); errs != nil {
		log.Printf("[WARN] CreateLoan: rejected: %s", validator.Summary(errs))
		return nil, ErrMissingSelection
	}
	api, err := s.collaborator(sess)
	if err != nil {
		return nil, err
	}

	loanDate := s.today()
	if req.LoanDate != nil && !req.LoanDate.IsZero() {
		loanDate = models.DateOf(req.LoanDate.Time)
	}
	dueDate := loanDate.AddDays(LoanPeriodDays)
	if req.DueDate != nil && !req.DueDate.IsZero() {
		dueDate = models.DateOf(req.DueDate.Time)
	}
	if dueDate.Before(loanDate.Time) {
		return nil, fmt.Errorf("%w (%s < %s)", ErrDueBeforeLoan, dueDate, loanDate)
	}

	bookID, memberID := int64(req.BookID), int64(req.MemberID)

	unlock, err := s.lock(ctx, bookResource(bookID))
	if err != nil {
		log.Printf("[WARN] CreateLoan: book %d: %v", bookID, err)
		return nil, err
	}
	defer unlock()

	books, err := api.ListBooks(ctx)
	if err != nil {
		log.Printf("[ERROR] CreateLoan: failed to load catalog: %v", err)
		return nil, err
	}
	book, ok := findBook(books, bookID)
	if !ok {
		log.Printf("[WARN] CreateLoan: book %d not in catalog", bookID)
		return nil, ErrBookNotFound
	}
	if book.Stock <= 0 {
		log.Printf("[WARN] CreateLoan: book %d (%q) has no stock", book.ID, book.Title)
		return nil, &stockExhaustedError{Title: book.Title}
	}

	var created *models.Loan
	steps := []sagaStep{
		{name: stepCreateLoan, run: func(ctx context.Context) error {
			loan, err := api.CreateLoan(ctx, models.NewLoan{
				BookID:   book.ID,
				MemberID: memberID,
				LoanDate: loanDate,
				DueDate:  dueDate,
				Status:   models.LoanOutstanding,
			})
			created = loan
			return err
		}},
		{name: stepDecrementStock, run: func(ctx context.Context) error {
			updated := book
			updated.Stock = book.Stock - 1
			if err := api.UpdateBook(ctx, updated); err != nil {
				return err
			}
			book = updated
			return nil
		}},
	}

	subject := fmt.Sprintf("book:%d member:%d", book.ID, memberID)
	runID, err := s.runSaga(ctx, sagaCreateLoan, subject, sess.Operator(), steps)
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] CreateLoan: loan %d created for member %d / book %d, due %s, stock now %d",
		created.ID, memberID, book.ID, dueDate, book.Stock)

	s.publisher.Publish(ctx, events.EventLoanCreated, runID.String(), events.LoanCreatedPayload{
		LoanID:     created.ID,
		BookID:     book.ID,
		MemberID:   memberID,
		LoanDate:   loanDate.String(),
		DueDate:    dueDate.String(),
		StockAfter: int64(book.Stock),
		Operator:   sess.Operator(),
	})

	return &LoanResult{
		SagaID:  runID,
		Loan:    created,
		Book:    book,
		Message: fmt.Sprintf("Peminjaman buku %q berhasil", book.Title),
	}, nil
}

// ─── Return ───────────────────────────────────────────────────────────────────

// ReturnLoan closes an outstanding loan. Steps, each gated on the previous:
//  1. create the late fine, if the loan is overdue today
//  2. mark the loan returned, carrying the fine fields
//  3. put one copy back on the book's stock
func (s *libraryService) ReturnLoan(ctx context.Context, sess *session.Session, loan *models.Loan) (*LoanResult, error) {
	if err := checkReturnable(loan); err != nil {
		return nil, err
	}
	api, err := s.collaborator(sess)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, loanResource(loan.ID), bookResource(loan.BookID))
	if err != nil {
		log.Printf("[WARN] ReturnLoan: loan %d: %v", loan.ID, err)
		return nil, err
	}
	defer unlock()

	return s.returnLocked(ctx, sess, api, loan)
}

// ReturnLoanByID resolves the loan from the collaborator's current loan list
// and returns it.
func (s *libraryService) ReturnLoanByID(ctx context.Context, sess *session.Session, loanID int64) (*LoanResult, error) {
	api, err := s.collaborator(sess)
	if err != nil {
		return nil, err
	}

	unlockLoan, err := s.lock(ctx, loanResource(loanID))
	if err != nil {
		log.Printf("[WARN] ReturnLoanByID: loan %d: %v", loanID, err)
		return nil, err
	}
	defer unlockLoan()

	loans, err := api.ListLoans(ctx)
	if err != nil {
		log.Printf("[ERROR] ReturnLoanByID: failed to load loans: %v", err)
		return nil, err
	}
	var loan *models.Loan
	for i := range loans {
		if loans[i].ID == loanID {
			loan = &loans[i]
			break
		}
	}
	if loan == nil {
		return nil, ErrLoanNotFound
	}
	if err := checkReturnable(loan); err != nil {
		return nil, err
	}

	unlockBook, err := s.lock(ctx, bookResource(loan.BookID))
	if err != nil {
		log.Printf("[WARN] ReturnLoanByID: loan %d: %v", loanID, err)
		return nil, err
	}
	defer unlockBook()

	return s.returnLocked(ctx, sess, api, loan)
}

func checkReturnable(loan *models.Loan) error {
	if loan == nil {
		return ErrNilLoan
	}
	if !loan.IsOutstanding() {
		log.Printf("[WARN] ReturnLoan: loan %d already returned", loan.ID)
		return ErrLoanNotOutstanding
	}
	return nil
}

func (s *libraryService) returnLocked(ctx context.Context, sess *session.Session, api Collaborator, loan *models.Loan) (*LoanResult, error) {
	books, err := api.ListBooks(ctx)
	if err != nil {
		log.Printf("[ERROR] ReturnLoan: failed to load catalog: %v", err)
		return nil, err
	}
	book, ok := findBook(books, loan.BookID)
	if !ok {
		log.Printf("[WARN] ReturnLoan: book %d of loan %d not in catalog", loan.BookID, loan.ID)
		return nil, ErrBookNotFound
	}

	today := s.today()
	var daysLate int64
	if !loan.DueDate.IsZero() {
		daysLate = DaysLate(loan.DueDate.Time, today.Time)
	}
	amount := daysLate * FinePerDay

	ret := models.LoanReturn{
		ReturnDate: today,
		Status:     models.LoanReturned,
	}
	var fine *models.Fine
	steps := make([]sagaStep, 0, 3)

	if amount > 0 {
		description := fmt.Sprintf("Keterlambatan pengembalian %d hari", daysLate)
		category := models.FineCategoryLate
		fineDate := today
		ret.Fine = &amount
		ret.FineDate = &fineDate
		ret.FineCategory = &category
		ret.Description = &description

		steps = append(steps, sagaStep{name: stepCreateFine, run: func(ctx context.Context) error {
			created, err := api.CreateFine(ctx, models.Fine{
				LoanID:        loan.ID,
				MemberID:      loan.MemberID,
				BookID:        loan.BookID,
				Amount:        models.NumString(amount),
				Category:      category,
				Description:   description,
				PaymentStatus: models.PaymentUnpaid,
				Date:          today,
			})
			fine = created
			return err
		}})
	}

	steps = append(steps,
		sagaStep{name: stepMarkReturned, run: func(ctx context.Context) error {
			return api.ReturnLoan(ctx, loan.ID, ret)
		}},
		sagaStep{name: stepIncrementStock, run: func(ctx context.Context) error {
			updated := book
			updated.Stock = book.Stock + 1
			if err := api.UpdateBook(ctx, updated); err != nil {
				return err
			}
			book = updated
			return nil
		}},
	)

	subject := fmt.Sprintf("loan:%d book:%d", loan.ID, loan.BookID)
	runID, err := s.runSaga(ctx, sagaReturnLoan, subject, sess.Operator(), steps)
	if err != nil {
		return nil, err
	}

	returned := *loan
	returned.Status = models.LoanReturned
	returned.ReturnedAt = &ret.ReturnDate
	if amount > 0 {
		fineAmount := models.NumString(amount)
		returned.FineAmount = &fineAmount
		returned.FineDate = ret.FineDate
		returned.FineCategory = ret.FineCategory
		returned.FineDescription = ret.Description
	}

	log.Printf("[INFO] ReturnLoan: loan %d returned (book %d, member %d), %d day(s) late, fine=%d, stock now %d",
		loan.ID, loan.BookID, loan.MemberID, daysLate, amount, book.Stock)

	if fine != nil {
		s.publisher.Publish(ctx, events.EventFineIssued, runID.String(), events.FineIssuedPayload{
			LoanID:   loan.ID,
			MemberID: loan.MemberID,
			BookID:   loan.BookID,
			Amount:   amount,
			DaysLate: daysLate,
			Date:     today.String(),
		})
	}
	s.publisher.Publish(ctx, events.EventLoanReturned, runID.String(), events.LoanReturnedPayload{
		LoanID:     loan.ID,
		BookID:     loan.BookID,
		MemberID:   loan.MemberID,
		ReturnDate: today.String(),
		Fine:       amount,
		StockAfter: int64(book.Stock),
		Operator:   sess.Operator(),
	})

	msg := fmt.Sprintf("Buku %q berhasil dikembalikan", book.Title)
	if amount > 0 {
		msg += " dengan denda keterlambatan Rp " + FormatRupiah(amount)
	}
	return &LoanResult{
		SagaID:   runID,
		Loan:     &returned,
		Book:     book,
		Fine:     fine,
		DaysLate: daysLate,
		Message:  msg,
	}, nil
}
