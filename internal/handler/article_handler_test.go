package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/damoang/angple-editorial/internal/common"
	"github.com/damoang/angple-editorial/internal/middleware"
	"github.com/damoang/angple-editorial/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWriteServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"gate", &service.GateError{ArticleID: 1, Missing: []string{service.MissingEvidence}}, http.StatusUnprocessableEntity},
		{"not found", fmt.Errorf("find: %w", common.ErrArticleNotFound), http.StatusNotFound},
		{"transition", common.ErrInvalidTransition, http.StatusConflict},
		{"input", common.ErrInvalidInput, http.StatusBadRequest},
		{"image chain", common.ErrImageChainExhausted, http.StatusBadGateway},
		{"unexpected", errors.New("db gone"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.RequestLogger())
			var recorded int
			r.GET("/x", func(c *gin.Context) {
				writeServiceError(c, tt.err, "처리 실패")
				recorded = len(c.Errors)
			})

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header.Set("X-Request-ID", "req-42")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
			if tt.want == http.StatusInternalServerError {
				assert.Equal(t, 1, recorded)
			} else {
				assert.Zero(t, recorded)
			}
		})
	}
}
