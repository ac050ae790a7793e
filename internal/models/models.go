package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoanStatus is the two-state lifecycle of a loan as the collaborator API
// stores it (status_peminjaman).
type LoanStatus int

const (
	LoanOutstanding LoanStatus = 0
	LoanReturned    LoanStatus = 1
)

const (
	// FineCategoryLate is the only fine category the lifecycle creates.
	FineCategoryLate = "terlambat"

	PaymentUnpaid NumString = 0
	PaymentPaid   NumString = 1
)

type Book struct {
	ID        int64     `json:"id"`
	ShelfNo   string    `json:"no_rak"`
	Title     string    `json:"judul" validate:"required"`
	Author    string    `json:"pengarang" validate:"required"`
	Year      NumString `json:"tahun_terbit"`
	Publisher string    `json:"penerbit"`
	Stock     Int       `json:"stok" validate:"gte=0"`
	Detail    string    `json:"detail"`
	CreatedAt *Date     `json:"created_at,omitempty"`
	UpdatedAt *Date     `json:"updated_at,omitempty"`
}

type Member struct {
	ID        int64  `json:"id"`
	IDCardNo  string `json:"no_ktp"`
	Name      string `json:"nama" validate:"required"`
	Address   string `json:"alamat"`
	BirthDate *Date  `json:"tgl_lahir,omitempty"`
	CreatedAt *Date  `json:"created_at,omitempty"`
}

// Loan is a peminjaman record. DueDate travels as tgl_pengembalian; the
// actual return date, once set, as tanggal_pengembalian.
type Loan struct {
	ID              int64      `json:"id"`
	BookID          int64      `json:"id_buku"`
	MemberID        int64      `json:"id_member"`
	LoanDate        Date       `json:"tgl_pinjam"`
	DueDate         Date       `json:"tgl_pengembalian"`
	ReturnedAt      *Date      `json:"tanggal_pengembalian,omitempty"`
	Status          LoanStatus `json:"status_peminjaman"`
	FineAmount      *NumString `json:"denda,omitempty"`
	FineDate        *Date      `json:"tanggal_denda,omitempty"`
	FineCategory    *string    `json:"jenis_denda,omitempty"`
	FineDescription *string    `json:"deskripsi,omitempty"`
	CreatedAt       *Date      `json:"created_at,omitempty"`
	UpdatedAt       *Date      `json:"updated_at,omitempty"`
}

// IsOutstanding reports whether the loan has not been returned yet.
func (l Loan) IsOutstanding() bool {
	return l.Status == LoanOutstanding
}

// NewLoan is the create-loan command body.
type NewLoan struct {
	BookID   int64      `json:"id_buku"`
	MemberID int64      `json:"id_member"`
	LoanDate Date       `json:"tgl_pinjam"`
	DueDate  Date       `json:"tgl_pengembalian"`
	Status   LoanStatus `json:"status_peminjaman"`
}

// LoanReturn is the body of the return endpoint. Fine fields are sent as
// null when the loan was returned on time.
type LoanReturn struct {
	ReturnDate   Date       `json:"tanggal_pengembalian"`
	Status       LoanStatus `json:"status_peminjaman"`
	Fine         *int64     `json:"denda"`
	FineDate     *Date      `json:"tanggal_denda"`
	FineCategory *string    `json:"jenis_denda"`
	Description  *string    `json:"deskripsi"`
}

// Fine is a denda record. Amount and payment status are numeric strings on
// the wire.
type Fine struct {
	ID            int64     `json:"id,omitempty"`
	LoanID        int64     `json:"id_peminjaman"`
	MemberID      int64     `json:"id_member"`
	BookID        int64     `json:"id_buku"`
	Amount        NumString `json:"jumlah_denda"`
	Category      string    `json:"jenis_denda"`
	Description   string    `json:"deskripsi"`
	PaymentStatus NumString `json:"status_pembayaran"`
	Date          Date      `json:"tanggal"`
	CreatedAt     *Date     `json:"created_at,omitempty"`
}

// ─── Saga journal (owned by this service) ─────────────────────────────────────

type SagaStatus string

const (
	SagaStatusRunning   SagaStatus = "RUNNING"
	SagaStatusCompleted SagaStatus = "COMPLETED"
	SagaStatusAborted   SagaStatus = "ABORTED"
	SagaStatusPartial   SagaStatus = "PARTIAL"
	SagaStatusResolved  SagaStatus = "RESOLVED"
)

type StepStatus string

const (
	StepStatusDone   StepStatus = "DONE"
	StepStatusFailed StepStatus = "FAILED"
)

type SagaRun struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string     `gorm:"size:64;not null;index" json:"name"`
	Subject    string     `gorm:"size:128;not null" json:"subject"`
	Status     SagaStatus `gorm:"size:16;not null;index" json:"status"`
	FailedStep string     `gorm:"size:64" json:"failed_step,omitempty"`
	Error      string     `gorm:"type:text" json:"error,omitempty"`
	Operator   string     `gorm:"size:255" json:"operator"`
	ResolvedBy string     `gorm:"size:255" json:"resolved_by,omitempty"`
	StartedAt  time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Steps      []SagaStep `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"steps,omitempty"`
}

type SagaStep struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SagaRunID uuid.UUID  `gorm:"type:uuid;not null;index" json:"saga_run_id"`
	Position  int        `gorm:"not null" json:"position"`
	Name      string     `gorm:"size:64;not null" json:"name"`
	Status    StepStatus `gorm:"size:16;not null" json:"status"`
	Error     string     `gorm:"type:text" json:"error,omitempty"`
	At        time.Time  `gorm:"not null" json:"at"`
}

func (r *SagaRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (s *SagaStep) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
