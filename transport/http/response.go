package http

import "github.com/gin-gonic/gin"

// Envelope is the uniform response body: {success, message, data?/errors?}.
// Token payloads are returned flat (see handlers); only status and error
// reporting go through the envelope.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func respondSuccess(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, message string, errs any) {
	c.JSON(status, Envelope{Success: false, Message: message, Errors: errs})
}
