package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"blog-service/internal/apperrors"
	"blog-service/internal/service"
	"blog-service/internal/util"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// successResponse creates a successful response
func successResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

// errorResponse creates an error response
func errorResponse(err error, message string) Response {
	return Response{
		Success: false,
		Error:   clientError(err),
		Message: message,
	}
}

// clientError hides the detail of dependency failures from callers.
func clientError(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrExternal):
		return "upstream service unavailable"
	case getStatusCode(err) == http.StatusInternalServerError:
		return "internal server error"
	default:
		return apperrors.Message(err)
	}
}

// responder carries the JSON helpers shared by every handler.
type responder struct {
	logger *zap.Logger
}

// respondWithJSON sends a JSON response
func (h responder) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

// respondWithError sends an error response
func (h responder) respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	log := h.logger.Warn
	if statusCode >= http.StatusInternalServerError {
		log = h.logger.Error
	}
	log("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	h.respondWithJSON(w, statusCode, errorResponse(err, message))
}

// fail maps err to its status code and responds.
func (h responder) fail(w http.ResponseWriter, err error, message string) {
	h.respondWithError(w, getStatusCode(err), err, message)
}

// getStatusCode determines the appropriate HTTP status code for an error
func getStatusCode(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var errBadBody = apperrors.New(apperrors.ErrInvalidInput, "invalid request body")

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errBadBody
	}
	return nil
}

// requestMeta describes the caller for the audit trail. RealIP has already
// rewritten RemoteAddr from forwarding headers.
func requestMeta(r *http.Request) service.RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return service.RequestMeta{IPAddress: ip, UserAgent: r.UserAgent()}
}
