package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/aidesk/internal/capability"
)

const maxJSONBodyBytes = 1 << 20

type jsendResponse struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func success(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, jsendResponse{
		Status: "success",
		Data:   data,
	})
}

func successWithStatus(c echo.Context, code int, data any) error {
	return c.JSON(code, jsendResponse{
		Status: "success",
		Data:   data,
	})
}

func fail(c echo.Context, code int, message string, data any) error {
	resp := jsendResponse{
		Status:  "fail",
		Message: message,
	}
	if data != nil {
		resp.Data = data
	}
	return c.JSON(code, resp)
}

func failValidation(c echo.Context, fieldErrors map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{
		"validation_errors": fieldErrors,
	})
}

func failNotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

func internalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, jsendResponse{
		Status:  "error",
		Message: message,
		Code:    http.StatusInternalServerError,
	})
}

// capabilityFailure maps a workflow error onto a JSend response. Causes of
// invocation failures stay in the logs.
func capabilityFailure(c echo.Context, err error) error {
	message := capability.UserMessage(err)
	var capErr *capability.Error
	data := map[string]any{"error_kind": capability.KindOf(err)}
	if errors.As(err, &capErr) && capErr.Capability != "" {
		data["capability"] = capErr.Capability
	}

	switch capability.KindOf(err) {
	case capability.ErrorValidationEmpty:
		return fail(c, http.StatusBadRequest, message, data)
	case capability.ErrorBusy:
		return fail(c, http.StatusConflict, message, data)
	case capability.ErrorAbsent, capability.ErrorUnavailable:
		return fail(c, http.StatusServiceUnavailable, message, data)
	default:
		return internalError(c, message)
	}
}

func decodeJSONBody(c echo.Context, dest any) error {
	decoder := json.NewDecoder(io.LimitReader(c.Request().Body, maxJSONBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func unauthorizedResponse(c echo.Context) error {
	return fail(c, http.StatusUnauthorized, "Authentication required", nil)
}
