package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// Envelope is the body of every API response.
type Envelope struct {
	Success bool          `json:"success"`
	Data    interface{}   `json:"data,omitempty"`
	Error   *APIError     `json:"error,omitempty"`
	Meta    *ResponseMeta `json:"meta"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error codes used across the API.
const (
	CodeInvalidInput       = "invalid_input"
	CodeInvalidBody        = "invalid_body"
	CodeNotFound           = "not_found"
	CodeStorageUnavailable = "storage_unavailable"
	CodeRateLimited        = "rate_limit_exceeded"
	CodeTimeout            = "request_timeout"
	CodeInternal           = "internal_server_error"
)

func meta(c *gin.Context) *ResponseMeta {
	return &ResponseMeta{
		RequestID: RequestIDFrom(c),
		Timestamp: time.Now().UTC(),
	}
}

// Respond writes a successful envelope.
func Respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{
		Success: true,
		Data:    data,
		Meta:    meta(c),
	})
}

// Fail writes an error envelope and aborts the chain.
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
		Meta:    meta(c),
	})
}
