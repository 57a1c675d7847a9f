package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAPIError_WithDetailsDoesNotMutateSentinel(t *testing.T) {
	e := ErrBadRequest.WithDetails("bad id")
	assert.Equal(t, "bad id", e.Details)
	assert.Nil(t, ErrBadRequest.Details)
	assert.Equal(t, http.StatusBadRequest, e.StatusCode)
}

func TestRespondWithError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondWithError(c, NewValidationAPIError(map[string]string{"Text": "required"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code":"VALIDATION_ERROR","error":"Input validation failed.","details":{"Text":"required"}}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	RespondWithError(c, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"An unexpected error occurred on the server."`)
}

func TestNewStoreAPIError(t *testing.T) {
	e := NewStoreAPIError(errors.New("dial tcp: refused"))
	assert.Equal(t, http.StatusServiceUnavailable, e.StatusCode)
	assert.Equal(t, "STORE_ERROR", e.Code)
	assert.Equal(t, "dial tcp: refused", e.Details)
}

func TestGetTokenFromContext(t *testing.T) {
	cases := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }, "abc"},
		{"bearer lowercase", func(r *http.Request) { r.Header.Set("Authorization", "bearer abc") }, "abc"},
		{"other scheme", func(r *http.Request) { r.Header.Set("Authorization", "Token abc") }, "Token abc"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "session", Value: "c1"}) }, "c1"},
		{"query", func(r *http.Request) { r.URL.RawQuery = "token=q1" }, "q1"},
		{"none", func(r *http.Request) {}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(c.Request)
			assert.Equal(t, tc.want, GetTokenFromContext(c))
		})
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(45, 2, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)
	start, end := p.Bounds()
	assert.Equal(t, 20, start)
	assert.Equal(t, 40, end)

	p = NewPagination(45, 3, 20)
	start, end = p.Bounds()
	assert.Equal(t, 40, start)
	assert.Equal(t, 45, end)
	assert.False(t, p.HasNext)

	p = NewPagination(5, 9, 20)
	start, end = p.Bounds()
	assert.Equal(t, 5, start)
	assert.Equal(t, 5, end)

	p = NewPagination(0, 0, 0)
	assert.Equal(t, 0, p.TotalPages)
	assert.Equal(t, DefaultPage, p.CurrentPage)
}

func TestGetPaginationParams(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	_, _, ok := GetPaginationParams(c)
	assert.False(t, ok)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=2&page_size=500", nil)
	page, size, ok := GetPaginationParams(c)
	assert.True(t, ok)
	assert.Equal(t, 2, page)
	assert.Equal(t, MaxPageSize, size)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=x", nil)
	page, size, ok = GetPaginationParams(c)
	assert.True(t, ok)
	assert.Equal(t, DefaultPage, page)
	assert.Equal(t, DefaultPageSize, size)
}
