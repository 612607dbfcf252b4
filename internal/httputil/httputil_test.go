package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

var errMissing = errors.New("missing")

func TestRespondErr(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rules := []StatusRule{{Err: errMissing, Status: http.StatusNotFound}}

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"matched wrapped", fmt.Errorf("note 3: %w", errMissing), http.StatusNotFound, `{"error":"note 3: missing"}`},
		{"unmatched", errors.New("boom"), http.StatusInternalServerError, `{"error":"boom"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			RespondErr(c, tt.err, rules...)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
			assert.True(t, c.IsAborted())
		})
	}
}
