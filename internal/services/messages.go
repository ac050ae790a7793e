package services

import (
	"errors"
	"fmt"
	"strings"

	"libraryadmin/internal/session"
)

const msgTransport = "Gagal menghubungi server. Silakan coba lagi."

// Localize turns an operation error into the message shown to librarians.
func Localize(err error) string {
	if err == nil {
		return ""
	}

	var stockErr *stockExhaustedError
	var stepErr *StepError
	var fieldErr *fieldError
	switch {
	case errors.Is(err, ErrMissingSelection):
		return "Harap pilih member dan buku"
	case errors.Is(err, ErrBookNotFound):
		return "Buku tidak ditemukan"
	case errors.As(err, &stockErr):
		return fmt.Sprintf("Stok buku %q habis", stockErr.Title)
	case errors.Is(err, ErrStockExhausted):
		return "Stok buku habis"
	case errors.Is(err, ErrNilLoan), errors.Is(err, ErrLoanNotFound):
		return "Data peminjaman tidak ditemukan"
	case errors.Is(err, ErrLoanNotOutstanding):
		return "Buku sudah dikembalikan"
	case errors.Is(err, ErrMemberNotFound):
		return "Member tidak ditemukan"
	case errors.Is(err, ErrBusy):
		return "Buku sedang diproses oleh petugas lain. Silakan coba lagi."
	case errors.As(err, &stepErr):
		return stepMessage(stepErr)
	case errors.Is(err, session.ErrPasswordMismatch):
		return "Password dan konfirmasi password tidak cocok"
	case errors.Is(err, session.ErrMalformedLogin):
		return "Format respons tidak valid. Hubungi administrator."
	case errors.Is(err, session.ErrInvalidCredentials), errors.Is(err, session.ErrMissingCredentials):
		return "Login gagal. Silakan periksa email dan password Anda."
	case errors.Is(err, ErrDueBeforeLoan):
		return "Tanggal pengembalian tidak boleh sebelum tanggal pinjam"
	case errors.As(err, &fieldErr):
		return "Data tidak valid: " + strings.Join(fieldErr.Fields, ", ")
	case errors.Is(err, ErrInvalidInput):
		return "Data tidak valid"
	case errors.Is(err, ErrNoSession), errors.Is(err, session.ErrNotFound):
		return "Sesi berakhir. Silakan login kembali."
	case errors.Is(err, ErrSagaRunNotFound):
		return "Riwayat proses tidak ditemukan"
	case errors.Is(err, ErrSagaNotPartial):
		return "Proses ini tidak memerlukan penyelesaian manual"
	case errors.Is(err, ErrJournalDisabled):
		return "Jurnal proses tidak aktif"
	}
	return msgTransport
}

func stepMessage(e *StepError) string {
	switch e.Step {
	case stepCreateLoan:
		return "Gagal mencatat peminjaman. Silakan coba lagi."
	case stepDecrementStock, stepIncrementStock:
		return "Gagal mengupdate stok buku"
	case stepCreateFine:
		return "Gagal membuat record denda: " + e.Err.Error()
	case stepMarkReturned:
		return "Gagal mengupdate status peminjaman"
	}
	return msgTransport
}
