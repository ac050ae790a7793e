package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"libraryadmin/internal/collab"
	"libraryadmin/internal/models"
	"libraryadmin/internal/services"
)

type LibraryHandler struct {
	svc      services.LibraryService
	sessions Sessions
}

func RegisterRoutes(r *gin.Engine, svc services.LibraryService, sessions Sessions) {
	h := &LibraryHandler{svc: svc, sessions: sessions}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api")

	// Account endpoints
	api.POST("/login", h.login)
	api.POST("/register", h.register)

	auth := api.Group("", RequireSession(sessions))
	auth.POST("/logout", h.logout)
	auth.GET("/dashboard", h.dashboard)

	// Catalog endpoints
	auth.GET("/books", h.listBooks)
	auth.POST("/books", h.createBook)
	auth.PUT("/books/:id", h.updateBook)
	auth.DELETE("/books/:id", h.deleteBook)

	auth.GET("/members", h.listMembers)
	auth.POST("/members", h.createMember)
	auth.PUT("/members/:id", h.updateMember)
	auth.DELETE("/members/:id", h.deleteMember)
	auth.GET("/members/:id/loans", h.memberLoans)

	// Lifecycle endpoints
	auth.GET("/loans", h.listLoans)
	auth.POST("/loans", h.createLoan)
	auth.POST("/loans/:id/return", h.returnLoan)
	auth.GET("/fines", h.listFines)
	auth.GET("/fines/preview", h.previewFine)

	// Saga journal endpoints
	auth.GET("/sagas", h.listSagas)
	auth.POST("/sagas/:id/resolve", h.resolveSaga)
}

// ─── Account ──────────────────────────────────────────────────────────────────

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *LibraryHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, token, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": s.ExpiresAt,
		"user":       s.User,
	})
}

type registerRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"c_password" binding:"required"`
}

func (h *LibraryHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.sessions.Register(c.Request.Context(), collab.RegisterRequest{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": user, "message": "Registrasi berhasil. Silakan login."})
}

func (h *LibraryHandler) logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), currentSession(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) dashboard(c *gin.Context) {
	d, err := h.svc.Dashboard(c.Request.Context(), currentSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ─── Books ────────────────────────────────────────────────────────────────────

func (h *LibraryHandler) listBooks(c *gin.Context) {
	page, err := h.svc.ListBooks(c.Request.Context(), currentSession(c), listQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *LibraryHandler) createBook(c *gin.Context) {
	var book models.Book
	if err := c.ShouldBindJSON(&book); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.svc.CreateBook(c.Request.Context(), currentSession(c), book)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *LibraryHandler) updateBook(c *gin.Context) {
	id, ok := pathID(c, "book")
	if !ok {
		return
	}
	var book models.Book
	if err := c.ShouldBindJSON(&book); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	book.ID = id

	if err := h.svc.UpdateBook(c.Request.Context(), currentSession(c), book); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *LibraryHandler) deleteBook(c *gin.Context) {
	id, ok := pathID(c, "book")
	if !ok {
		return
	}
	if err := h.svc.DeleteBook(c.Request.Context(), currentSession(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ─── Members ──────────────────────────────────────────────────────────────────

func (h *LibraryHandler) listMembers(c *gin.Context) {
	page, err := h.svc.ListMembers(c.Request.Context(), currentSession(c), listQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *LibraryHandler) createMember(c *gin.Context) {
	var member models.Member
	if err := c.ShouldBindJSON(&member); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.svc.CreateMember(c.Request.Context(), currentSession(c), member)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *LibraryHandler) updateMember(c *gin.Context) {
	id, ok := pathID(c, "member")
	if !ok {
		return
	}
	var member models.Member
	if err := c.ShouldBindJSON(&member); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	member.ID = id

	if err := h.svc.UpdateMember(c.Request.Context(), currentSession(c), member); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *LibraryHandler) deleteMember(c *gin.Context) {
	id, ok := pathID(c, "member")
	if !ok {
		return
	}
	if err := h.svc.DeleteMember(c.Request.Context(), currentSession(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *LibraryHandler) memberLoans(c *gin.Context) {
	id, ok := pathID(c, "member")
	if !ok {
		return
	}
	loans, err := h.svc.MemberLoans(c.Request.Context(), currentSession(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": loans})
}

// ─── Loans & Fines ────────────────────────────────────────────────────────────

func (h *LibraryHandler) listLoans(c *gin.Context) {
	page, err := h.svc.ListLoans(c.Request.Context(), currentSession(c), listQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *LibraryHandler) createLoan(c *gin.Context) {
	var req services.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.CreateLoan(c.Request.Context(), currentSession(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *LibraryHandler) returnLoan(c *gin.Context) {
	id, ok := pathID(c, "loan")
	if !ok {
		return
	}
	res, err := h.svc.ReturnLoanByID(c.Request.Context(), currentSession(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *LibraryHandler) listFines(c *gin.Context) {
	page, err := h.svc.ListFines(c.Request.Context(), currentSession(c), listQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *LibraryHandler) previewFine(c *gin.Context) {
	due, err := models.ParseDate(c.Query("due"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due date: " + err.Error()})
		return
	}
	var returned *models.Date
	if raw := c.Query("returned"); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid returned date: " + err.Error()})
			return
		}
		returned = &d
	}
	c.JSON(http.StatusOK, h.svc.PreviewFine(due, returned))
}

// ─── Saga Journal ─────────────────────────────────────────────────────────────

func (h *LibraryHandler) listSagas(c *gin.Context) {
	status := models.SagaStatus(strings.ToUpper(c.Query("status")))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultSagaLimit)))

	runs, err := h.svc.ListSagas(c.Request.Context(), status, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs})
}

func (h *LibraryHandler) resolveSaga(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid saga id"})
		return
	}
	run, err := h.svc.ResolveSaga(c.Request.Context(), currentSession(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func pathID(c *gin.Context, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " id"})
		return 0, false
	}
	return id, true
}

func listQuery(c *gin.Context) services.ListQuery {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(services.DefaultPerPage)))
	return services.ListQuery{Query: c.Query("q"), Page: page, PerPage: perPage}
}
