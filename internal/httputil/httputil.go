package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RespondError sends {"error": msg} and aborts the handler chain.
func RespondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// StatusRule maps a sentinel error to an HTTP status.
type StatusRule struct {
	Err    error
	Status int
}

// RespondErr picks the status of the first rule err matches, 500 otherwise.
func RespondErr(c *gin.Context, err error, rules ...StatusRule) {
	for _, r := range rules {
		if errors.Is(err, r.Err) {
			RespondError(c, r.Status, err.Error())
			return
		}
	}
	RespondError(c, http.StatusInternalServerError, err.Error())
}
