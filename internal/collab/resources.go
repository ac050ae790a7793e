package collab

import (
	"context"
	stdjson "encoding/json"
	"fmt"
	"net/http"

	"libraryadmin/internal/models"
)

const (
	pathBooks       = "buku"
	pathMembers     = "member"
	pathLoans       = "peminjaman"
	pathLoanReturns = "peminjaman/pengembalian"
	pathFines       = "denda"
	pathLogin       = "login"
	pathRegister    = "register"
)

// LoginResult holds the upstream credential and the user profile as sent.
type LoginResult struct {
	Token string
	User  stdjson.RawMessage
}

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"c_password"`
}

// Login exchanges credentials for a bearer token. The token may come as
// access_token or token, the profile as user or data.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	req := map[string]string{"email": email, "password": password}

	var body struct {
		AccessToken string             `json:"access_token"`
		Token       string             `json:"token"`
		User        stdjson.RawMessage `json:"user"`
		Data        stdjson.RawMessage `json:"data"`
	}
	raw, err := c.send(ctx, http.MethodPost, pathLogin, req)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	res := &LoginResult{Token: body.AccessToken, User: body.User}
	if res.Token == "" {
		res.Token = body.Token
	}
	if len(res.User) == 0 {
		res.User = body.Data
	}
	if res.Token == "" {
		// some deployments nest the token inside data
		var nested struct {
			AccessToken string             `json:"access_token"`
			Token       string             `json:"token"`
			User        stdjson.RawMessage `json:"user"`
		}
		if len(body.Data) > 0 && json.Unmarshal(body.Data, &nested) == nil {
			res.Token = nested.AccessToken
			if res.Token == "" {
				res.Token = nested.Token
			}
			if len(nested.User) > 0 {
				res.User = nested.User
			}
		}
	}
	return res, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (stdjson.RawMessage, error) {
	var out stdjson.RawMessage
	if err := c.do(ctx, http.MethodPost, pathRegister, req, &out); err != nil && err != ErrEmptyResponse {
		return nil, err
	}
	return out, nil
}

// ─── Books ────────────────────────────────────────────────────────────────────

func (c *Client) ListBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := c.do(ctx, http.MethodGet, pathBooks, nil, &books); err != nil && err != ErrEmptyResponse {
		return nil, err
	}
	return books, nil
}

func (c *Client) CreateBook(ctx context.Context, book models.Book) (*models.Book, error) {
	var out models.Book
	if err := c.do(ctx, http.MethodPost, pathBooks, book, &out); err != nil {
		if err == ErrEmptyResponse {
			return &book, nil
		}
		return nil, err
	}
	return &out, nil
}

// UpdateBook replaces the whole book record, stock included.
func (c *Client) UpdateBook(ctx context.Context, book models.Book) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", pathBooks, book.ID), book, nil)
}

func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", pathBooks, id), nil, nil)
}

// ─── Members ──────────────────────────────────────────────────────────────────

func (c *Client) ListMembers(ctx context.Context) ([]models.Member, error) {
	var members []models.Member
	if err := c.do(ctx, http.MethodGet, pathMembers, nil, &members); err != nil && err != ErrEmptyResponse {
		return nil, err
	}
	return members, nil
}

func (c *Client) CreateMember(ctx context.Context, member models.Member) (*models.Member, error) {
	var out models.Member
	if err := c.do(ctx, http.MethodPost, pathMembers, member, &out); err != nil {
		if err == ErrEmptyResponse {
			return &member, nil
		}
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMember(ctx context.Context, member models.Member) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", pathMembers, member.ID), member, nil)
}

func (c *Client) DeleteMember(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", pathMembers, id), nil, nil)
}

// ─── Loans ────────────────────────────────────────────────────────────────────

func (c *Client) ListLoans(ctx context.Context) ([]models.Loan, error) {
	var loans []models.Loan
	if err := c.do(ctx, http.MethodGet, pathLoans, nil, &loans); err != nil && err != ErrEmptyResponse {
		return nil, err
	}
	return loans, nil
}

// CreateLoan posts a new loan. When the collaborator answers without a body
// the returned loan carries the submitted fields and a zero ID.
func (c *Client) CreateLoan(ctx context.Context, loan models.NewLoan) (*models.Loan, error) {
	var out models.Loan
	if err := c.do(ctx, http.MethodPost, pathLoans, loan, &out); err != nil {
		if err != ErrEmptyResponse {
			return nil, err
		}
		out = models.Loan{
			BookID:   loan.BookID,
			MemberID: loan.MemberID,
			LoanDate: loan.LoanDate,
			DueDate:  loan.DueDate,
			Status:   loan.Status,
		}
	}
	return &out, nil
}

func (c *Client) ReturnLoan(ctx context.Context, loanID int64, ret models.LoanReturn) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", pathLoanReturns, loanID), ret, nil)
}

// ─── Fines ────────────────────────────────────────────────────────────────────

func (c *Client) ListFines(ctx context.Context) ([]models.Fine, error) {
	var fines []models.Fine
	if err := c.do(ctx, http.MethodGet, pathFines, nil, &fines); err != nil && err != ErrEmptyResponse {
		return nil, err
	}
	return fines, nil
}

// CreateFine requires a non-empty answer; an empty one is treated as a
// failed creation.
func (c *Client) CreateFine(ctx context.Context, fine models.Fine) (*models.Fine, error) {
	var out models.Fine
	if err := c.do(ctx, http.MethodPost, pathFines, fine, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
