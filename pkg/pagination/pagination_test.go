package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func paramsFor(t *testing.T, query string, defaultLimit int) Params {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c, defaultLimit)
}

func TestParseDefaults(t *testing.T) {
	p := paramsFor(t, "", 20)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, 0, p.Offset)
}

func TestParseClamps(t *testing.T) {
	p := paramsFor(t, "page=0&limit=-5", 50)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 50, p.Limit)

	p = paramsFor(t, "page=3&limit=500", 20)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 2*MaxLimit, p.Offset)
}

func TestParseOffset(t *testing.T) {
	p := paramsFor(t, "page=4&limit=25", 20)
	assert.Equal(t, 75, p.Offset)
}
