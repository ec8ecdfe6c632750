package users

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/omnipulse/go-shared-kernel/apperr"
	"github.com/omnipulse/go-shared-kernel/errcode"
	"github.com/omnipulse/go-shared-kernel/response"
)

// DefaultPageSize is used when a list call omits size.
const DefaultPageSize = 20

// Handler exposes Service over gin. Errors are attached with c.Error and
// rendered by the kernel error handler.
type Handler struct {
	svc *Service
}

// NewHandler returns a Handler for svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Mount registers the user routes on rg.
func (h *Handler) Mount(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.PUT("/:id", h.rename)
	rg.DELETE("/:id", h.delete)
	rg.POST("/:id/restore", h.restore)
}

func (h *Handler) create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	u, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(u, "User created"))
}

func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	u, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response.Success(u, "User retrieved"))
}

func (h *Handler) list(c *gin.Context) {
	rawPage, ok := c.GetQuery("page")
	if !ok {
		_ = c.Error(apperr.MissingParameter("page"))
		return
	}
	page, err := strconv.Atoi(rawPage)
	if err != nil {
		_ = c.Error(apperr.Wrap(err, "Parameter page must be a number", errcode.BadRequest))
		return
	}

	size := DefaultPageSize
	if raw, ok := c.GetQuery("size"); ok {
		if size, err = strconv.Atoi(raw); err != nil {
			_ = c.Error(apperr.Wrap(err, "Parameter size must be a number", errcode.BadRequest))
			return
		}
	}

	p, err := h.svc.List(c.Request.Context(), page, size)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessPaged(p))
}

func (h *Handler) rename(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	u, err := h.svc.Rename(c.Request.Context(), id, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response.Success(u, "User updated"))
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response.Success[any](nil, "User deleted"))
}

func (h *Handler) restore(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Restore(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response.Success[any](nil, "User restored"))
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperr.Validation(response.FieldError{
			Field:         "id",
			Message:       "must be a valid UUID",
			RejectedValue: c.Param("id"),
		}))
		return uuid.Nil, false
	}
	return id, true
}
