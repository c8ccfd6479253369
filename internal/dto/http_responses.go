package dto

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	Conflict     = "CONFLICT"
	Unauthorized = "UNAUTHORIZED"
	Forbidden    = "FORBIDDEN"
	NotFound     = "NOT_FOUND"
	StateError   = "STATE_ERROR"
)

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func ErrorResponse(c *ginext.Context, status int, code, desc string) {
	c.JSON(status, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func BadResponseError(c *ginext.Context, code, desc string) {
	ErrorResponse(c, http.StatusBadRequest, code, desc)
}

func ConflictError(c *ginext.Context, desc string) {
	ErrorResponse(c, http.StatusConflict, Conflict, desc)
}

func UnauthorizedError(c *ginext.Context, desc string) {
	ErrorResponse(c, http.StatusUnauthorized, Unauthorized, desc)
}

func ForbiddenError(c *ginext.Context, desc string) {
	ErrorResponse(c, http.StatusForbidden, Forbidden, desc)
}

func NotFoundError(c *ginext.Context, desc string) {
	ErrorResponse(c, http.StatusNotFound, NotFound, desc)
}

func InternalServerError(c *ginext.Context) {
	ErrorResponse(c, http.StatusInternalServerError, ServiceUnavailable, InternalError)
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Status: "ok",
		Data:   data,
	})
}

// Redirect answers with 303 so that a form POST is followed by a GET.
func Redirect(c *ginext.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
}
