// Package ginutil holds small request-parsing helpers shared by handlers.
package ginutil

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ErrNotPositive is returned by ParamID for zero or negative ids
var ErrNotPositive = errors.New("id must be a positive integer")

// QueryInt extracts an integer from query parameters with default value
func QueryInt(c *gin.Context, key string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// QueryIntRange is QueryInt clamped to [lo, hi]. Values below lo fall back to the default.
func QueryIntRange(c *gin.Context, key string, defaultValue, lo, hi int) int {
	v := QueryInt(c, key, defaultValue)
	if v < lo {
		return defaultValue
	}
	if v > hi {
		return hi
	}
	return v
}

// ParamID extracts a positive int64 path parameter
func ParamID(c *gin.Context, key string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, ErrNotPositive
	}
	return id, nil
}
