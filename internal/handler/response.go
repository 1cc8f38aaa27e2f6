package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/yutasaka/fleamarket-backend/internal/service"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// serviceError maps service sentinels onto the wire taxonomy. Anything
// unrecognized is a storage failure: the cause is logged and a generic
// storage_error goes out.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrMissingParameter):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("missing_parameter", "missing required parameters"))
	case errors.Is(err, service.ErrInvalidParticipants):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_participants", "buyer and seller must be different users"))
	case errors.Is(err, service.ErrEmptyMessage):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("empty_message", "message needs text or an image"))
	case errors.Is(err, service.ErrInvalidImage):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid_image", "file must be an image"))
	case errors.Is(err, service.ErrImageTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, NewErrorResponse("image_too_large", "image exceeds 5MiB"))
	case errors.Is(err, service.ErrAccessDenied):
		return c.JSON(http.StatusForbidden, NewErrorResponse("access_denied", "access denied"))
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "not found"))
	case errors.Is(err, service.ErrUploadFailed):
		c.Logger().Errorf("upload failed: %v", err)
		return c.JSON(http.StatusBadGateway, NewErrorResponse("upload_error", "image upload failed"))
	default:
		c.Logger().Errorf("storage error: %v", err)
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("storage_error", "internal error"))
	}
}

func callerUID(c echo.Context) (string, bool) {
	uid, _ := c.Get("uid").(string)
	return uid, uid != ""
}
