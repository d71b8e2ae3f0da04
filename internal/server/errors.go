package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Wire error taxonomy. Every non-2xx response uses one of these types.
const (
	typeInvalidRequest = "invalid_request_error"
	typeNotFound       = "not_found"
	typeServerError    = "server_error"
)

// requestError is the only error shape handlers return; the central error
// handler is the single place it becomes an HTTP response.
type requestError struct {
	Status  int
	Type    string
	Message string
}

func (e requestError) Error() string {
	return e.Message
}

// StatusCode reports the HTTP status the error maps to.
func (e requestError) StatusCode() int {
	return e.Status
}

func badRequest(format string, args ...any) requestError {
	return requestError{
		Status:  http.StatusBadRequest,
		Type:    typeInvalidRequest,
		Message: fmt.Sprintf(format, args...),
	}
}

func serverError(format string, args ...any) requestError {
	return requestError{
		Status:  http.StatusInternalServerError,
		Type:    typeServerError,
		Message: fmt.Sprintf(format, args...),
	}
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func writeErrorEnvelope(c echo.Context, status int, errType, message string) {
	var payload errorBody
	payload.Error.Message = message
	payload.Error.Type = errType
	payload.Error.Code = status

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal error envelope", "err", err)
		return
	}
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(data)))
	if err := c.Blob(status, echo.MIMEApplicationJSON, data); err != nil {
		slog.Error("write error envelope", "err", err)
	}
}

// errorEnvelopeHandler converts any error escaping a handler into the wire
// envelope. Nothing propagates past this point.
func errorEnvelopeHandler(err error, c echo.Context) {
	if c.Response().Committed {
		slog.Error("error after response committed", "err", err)
		return
	}

	if reqErr, ok := err.(requestError); ok {
		writeErrorEnvelope(c, reqErr.Status, reqErr.Type, reqErr.Message)
		return
	}

	if he, ok := err.(*echo.HTTPError); ok {
		switch he.Code {
		case http.StatusNotFound:
			writeErrorEnvelope(c, he.Code, typeNotFound, fmt.Sprintf("Endpoint not found: %s", c.Request().URL.Path))
		case http.StatusBadRequest:
			writeErrorEnvelope(c, he.Code, typeInvalidRequest, fmt.Sprintf("%v", he.Message))
		default:
			writeErrorEnvelope(c, he.Code, typeServerError, fmt.Sprintf("%v", he.Message))
		}
		return
	}

	writeErrorEnvelope(c, http.StatusInternalServerError, typeServerError, "internal server error")
}
