package ginutil

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newContext(rawQuery string, params gin.Params) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/x?"+rawQuery, nil)
	c.Params = params
	return c
}

func TestQueryIntRange(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=abc", 20},
		{"limit=0", 20},
		{"limit=35", 35},
		{"limit=500", 100},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, QueryIntRange(newContext(tt.query, nil), "limit", 20, 1, 100))
		})
	}
}

func TestParamID(t *testing.T) {
	id, err := ParamID(newContext("", gin.Params{{Key: "id", Value: "42"}}), "id")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = ParamID(newContext("", gin.Params{{Key: "id", Value: "0"}}), "id")
	assert.ErrorIs(t, err, ErrNotPositive)

	_, err = ParamID(newContext("", gin.Params{{Key: "id", Value: "x"}}), "id")
	assert.Error(t, err)
}
