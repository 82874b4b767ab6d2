package api

import (
	"net/http"

	"totalreturn/pkg/totalreturn"
)

// Response represents a successful API response with unified format.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
}

// writeSuccess writes a successful response with data.
func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Code: 0,
		Data: data,
	})
}

// writeSuccessWithMessage writes a successful response with data and message.
func writeSuccessWithMessage(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// writeErrorResponse writes an error response with proper HTTP status and error details.
func writeErrorResponse(w http.ResponseWriter, httpStatus int, err error) {
	response := ErrorResponse{
		Code:    httpStatus,
		Message: err.Error(),
	}

	if trErr, ok := err.(*totalreturn.Error); ok {
		response.ErrorCode = string(trErr.Code)
		httpStatus = mapErrorCodeToHTTPStatus(trErr.Code)
		response.Code = httpStatus
	}

	writeJSON(w, httpStatus, response)
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code totalreturn.ErrorCode) int {
	switch code {
	case totalreturn.ErrCodeInvalidInput, totalreturn.ErrCodeMissingData, totalreturn.ErrCodeParse:
		return http.StatusBadRequest
	case totalreturn.ErrCodeNotFound:
		return http.StatusNotFound
	case totalreturn.ErrCodeUpstream:
		return http.StatusBadGateway
	case totalreturn.ErrCodeDatabase, totalreturn.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
