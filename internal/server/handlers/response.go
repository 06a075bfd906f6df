package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/apperr"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

const (
	dateLayout      = "2006-01-02"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func respondList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	count := len(items)
	c.JSON(http.StatusOK, envelope{Success: true, Data: items, Count: &count})
}

func sendWorkbook(c *gin.Context, filename string, body []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, body)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, envelope{Message: message})
}

// statusOf maps an error kind to an HTTP status.
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an error envelope and logs it at a level matching its kind.
func fail(c *gin.Context, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	fields := []zap.Field{
		zap.String(RequestIDKey, c.GetString(RequestIDKey)),
		zap.String("path", c.FullPath()),
		zap.String("kind", string(kind)),
		zap.Error(err),
	}

	switch kind {
	case apperr.KindStorage, apperr.KindInvariant:
		logger.Error("request failed", fields...)
	case apperr.KindConflict:
		logger.Warn("request failed", fields...)
	default:
		logger.Debug("request failed", fields...)
	}

	c.AbortWithStatusJSON(statusOf(kind), envelope{Message: apperr.MessageOf(err)})
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func objectID(c *gin.Context, raw string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		badRequest(c, "invalid id: "+raw)
		return primitive.NilObjectID, false
	}
	return id, true
}

func pathID(c *gin.Context) (primitive.ObjectID, bool) {
	return objectID(c, c.Param("id"))
}

var errBadDate = errors.New("dates must be YYYY-MM-DD or RFC 3339")

// parseDate accepts an empty string (zero time), a calendar date or an RFC 3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, errBadDate
}

// dateQuery parses an optional date query parameter.
func dateQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := parseDate(raw)
	if err != nil {
		badRequest(c, key+": "+err.Error())
		return nil, false
	}
	return &t, true
}

// endOfDay widens a bare calendar date to the last instant of that day.
func endOfDay(t *time.Time) *time.Time {
	if t == nil || !t.Equal(t.Truncate(24*time.Hour)) {
		return t
	}
	end := t.Add(24*time.Hour - time.Nanosecond)
	return &end
}
