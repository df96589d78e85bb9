// Package response writes the JSON envelopes returned by every handler.
package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	svcErr "github.com/oggyb/talenthub/internal/errors"
)

// Body is the success envelope.
type Body struct {
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
	Next    string `json:"nextCursor,omitempty"`
}

// ErrorBody is the failure envelope.
type ErrorBody struct {
	Success bool                `json:"success"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// JSON writes data with the given status.
func JSON(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Body{Data: data, Message: message})
}

// OK writes a 200 response.
func OK(c *gin.Context, data any) {
	JSON(c, http.StatusOK, data, "")
}

// Created writes a 201 response.
func Created(c *gin.Context, data any, message string) {
	JSON(c, http.StatusCreated, data, message)
}

// Page writes a 200 response carrying a next-page cursor when there is one.
func Page(c *gin.Context, data any, next *string) {
	body := Body{Data: data}
	if next != nil {
		body.Next = *next
	}
	c.JSON(http.StatusOK, body)
}

// NoContent writes a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error renders err and aborts the chain. Internal errors are logged with
// their cause; the cause is never sent to the client.
func Error(c *gin.Context, err error) {
	e := svcErr.As(err)
	if e.Kind == svcErr.KindInternal {
		logger(c).Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
	}
	c.AbortWithStatusJSON(e.HTTPStatus(), ErrorBody{
		Success: false,
		Code:    e.Code,
		Message: e.Message,
		Errors:  e.Fields,
	})
}

// BindError converts a gin binding failure into a field map.
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		Error(c, svcErr.Validation("Request body is not valid JSON"))
		return
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		fields[name] = append(fields[name], fieldMessage(fe))
	}
	Error(c, svcErr.Fields(fields))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "notundefined":
		return fe.Field() + " must be a real value"
	case "min":
		return fe.Field() + " must contain at least " + fe.Param() + " entries"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

// LoggerKey is where the router stores the request logger.
const LoggerKey = "logger"

func logger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(LoggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}
