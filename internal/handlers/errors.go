package handlers

import (
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"libraryadmin/internal/collab"
	"libraryadmin/internal/services"
	"libraryadmin/internal/session"
)

// statusFor maps an operation error to its HTTP status.
func statusFor(err error) int {
	var stepErr *services.StepError
	var apiErr *collab.APIError
	var urlErr *url.Error
	var netErr net.Error

	switch {
	case errors.Is(err, services.ErrMissingSelection),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrNilLoan),
		errors.Is(err, session.ErrPasswordMismatch),
		errors.Is(err, session.ErrMissingCredentials):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrBookNotFound),
		errors.Is(err, services.ErrLoanNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrSagaRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrStockExhausted),
		errors.Is(err, services.ErrLoanNotOutstanding),
		errors.Is(err, services.ErrBusy),
		errors.Is(err, services.ErrSagaNotPartial):
		return http.StatusConflict
	case errors.Is(err, services.ErrNoSession),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrJournalDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &stepErr):
		return http.StatusBadGateway
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode
		}
		return http.StatusBadGateway
	case errors.Is(err, session.ErrMalformedLogin),
		errors.Is(err, collab.ErrEmptyResponse),
		errors.As(err, &urlErr),
		errors.As(err, &netErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": services.Localize(err), "detail": err.Error()}

	var stepErr *services.StepError
	if errors.As(err, &stepErr) {
		body["saga_id"] = stepErr.RunID
		body["failed_step"] = stepErr.Step
		body["completed_steps"] = stepErr.Completed
		body["partial"] = stepErr.Partial()
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, body)
}
