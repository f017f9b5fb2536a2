package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/readowl/readowl/internal/auth"
	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/logging"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps one page of a listing.
type PaginatedResponse struct {
	Data    any   `json:"data"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

func respondForbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, ErrorResponse{Error: "insufficient permissions"})
}

// respondInternalError logs err with the request logger and answers with a
// generic message.
func respondInternalError(c *gin.Context, err error, operation string) {
	logging.FromContext(c.Request.Context()).Error().Err(err).Str("operation", operation).Msg("request failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondStoreError maps a repository error to 404 or 500.
func respondStoreError(c *gin.Context, err error, resource string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, resource)
		return
	}
	respondInternalError(c, err, "load "+resource)
}

func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// parseIDParam reads an unsigned ID path parameter, answering 400 when it
// is malformed.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// parsePagination reads limit and offset, clamping limit to maxPageSize.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err = strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func paginated(data any, total int64, limit, offset int) PaginatedResponse {
	return PaginatedResponse{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset) < total-int64(limit),
	}
}

func isHTMXRequest(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// canEditBook reports whether the caller may change book: its author or an
// admin. With authentication disabled everyone may.
func canEditBook(c *gin.Context, book *entities.Book) bool {
	if auth.GetAuthType(c) == auth.AuthTypeNone && auth.GetUserRole(c) == entities.UserRoleAdmin {
		return true
	}
	userID := auth.GetUserID(c)
	if userID == auth.DefaultUserID {
		return false
	}
	return book.AuthorID == userID || auth.GetUserRole(c) == entities.UserRoleAdmin
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
