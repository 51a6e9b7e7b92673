package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"llmbridge/internal/provider"
)

type requestError struct {
	Status   int
	Message  string
	Type     string
	Code     string
	Upstream json.RawMessage
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message  string          `json:"message"`
		Type     string          `json:"type"`
		Code     string          `json:"code,omitempty"`
		Upstream json.RawMessage `json:"upstream,omitempty"`
	} `json:"error"`
}

func writeError(c echo.Context, e requestError) error {
	var payload errorBody
	payload.Error.Message = e.Message
	payload.Error.Type = e.Type
	payload.Error.Code = e.Code
	payload.Error.Upstream = e.Upstream
	return c.JSON(e.Status, payload)
}

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		_ = writeError(c, requestError{Status: he.Code, Message: msg, Type: "invalid_request_error"})
		return
	}

	_ = writeError(c, requestError{Status: http.StatusInternalServerError, Message: "internal server error", Type: "server_error"})
}

func invalidRequest(err error) requestError {
	return requestError{
		Status:  http.StatusBadRequest,
		Message: err.Error(),
		Type:    "invalid_request_error",
	}
}

// toHTTPError maps the provider error taxonomy onto HTTP statuses.
func toHTTPError(err error) error {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	switch {
	case errors.Is(err, provider.ErrModelNotFound):
		return requestError{Status: http.StatusBadRequest, Message: err.Error(), Type: "invalid_request_error", Code: "model_not_found"}
	case errors.Is(err, provider.ErrUnsupportedProvider):
		return requestError{Status: http.StatusBadRequest, Message: err.Error(), Type: "invalid_request_error", Code: "unsupported_provider"}
	case errors.Is(err, provider.ErrValidation):
		return requestError{Status: http.StatusBadRequest, Message: err.Error(), Type: "invalid_request_error", Code: "validation_error"}
	case errors.Is(err, provider.ErrCapabilityUnsupported):
		return requestError{Status: http.StatusBadRequest, Message: err.Error(), Type: "invalid_request_error", Code: "capability_unsupported"}
	case errors.Is(err, provider.ErrNotReady):
		return requestError{Status: http.StatusConflict, Message: err.Error(), Type: "invalid_request_error", Code: "batch_not_ready"}
	}

	if ue, ok := provider.AsUpstreamError(err); ok {
		out := requestError{
			Status:  http.StatusBadGateway,
			Message: ue.Error(),
			Type:    "upstream_error",
			Code:    http.StatusText(ue.StatusCode),
		}
		if json.Valid(ue.Body) {
			out.Upstream = ue.Body
		} else if len(ue.Body) > 0 {
			quoted, _ := json.Marshal(string(ue.Body))
			out.Upstream = quoted
		}
		return out
	}

	return requestError{
		Status:  http.StatusBadGateway,
		Message: "upstream provider error",
		Type:    "upstream_error",
	}
}
