// Package api exposes the HTTP surface. Handlers bind and validate payloads,
// call a service, and translate the service's fault kind to a status code;
// no business rule lives here.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/workpulse/workpulse/internal/faults"
)

var validate = validator.New()

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError maps the fault kind to a status code. Unclassified errors
// become a plain 500 so internals never leak.
func respondError(c *gin.Context, err error) {
	c.JSON(statusOf(err), gin.H{
		"success": false,
		"error":   faults.Message(err),
	})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
	})
}

func statusOf(err error) int {
	switch faults.KindOf(err) {
	case faults.Unauthenticated:
		return http.StatusUnauthorized
	case faults.Forbidden:
		return http.StatusForbidden
	case faults.InvalidInput:
		return http.StatusBadRequest
	case faults.InvalidState:
		return http.StatusUnprocessableEntity
	case faults.Conflict:
		return http.StatusConflict
	case faults.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// bindJSON binds and validates a request payload in one step.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBadRequest(c, "invalid request payload")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondBadRequest(c, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return "invalid value for field " + verrs[0].Field()
	}
	return "invalid request payload"
}
