package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anoixa/eatinator/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newContext(header map[string]string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "192.0.2.1:1234"
	for k, v := range header {
		c.Request.Header.Set(k, v)
	}
	return c, w
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		want   string
	}{
		{"cloudflare first", map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2", "X-Real-IP": "3.3.3.3"}, "1.1.1.1"},
		{"forwarded first hop", map[string]string{"X-Forwarded-For": " 2.2.2.2 , 4.4.4.4", "X-Real-IP": "3.3.3.3"}, "2.2.2.2"},
		{"real ip", map[string]string{"X-Real-IP": "3.3.3.3"}, "3.3.3.3"},
		{"remote addr", nil, "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(tt.header)
			assert.Equal(t, tt.want, ClientIP(c))
		})
	}
}

func TestVerificationToken(t *testing.T) {
	c, _ := newContext(map[string]string{VerificationHeader: "from-header"})
	assert.Equal(t, "body", VerificationToken(c, "", " body ", "legacy"))
	assert.Equal(t, "legacy", VerificationToken(c, "", "legacy"))
	assert.Equal(t, "from-header", VerificationToken(c, "", "  "))
}

func TestRespondSuccess(t *testing.T) {
	c, w := newContext(nil)
	RespondSuccess(c, gin.H{"votes": 3})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"votes":3}`, w.Body.String())
}

func TestRespondAppError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		body   string
	}{
		{fmt.Errorf("%w: dish key is required", apperr.ErrInvalidInput), http.StatusBadRequest, `{"success":false,"error":"invalid input: dish key is required"}`},
		{apperr.ErrForbidden, http.StatusForbidden, `{"success":false,"error":"verification failed"}`},
		{errors.New("disk on fire"), http.StatusInternalServerError, `{"success":false,"error":"Internal server error"}`},
	}
	for _, tt := range tests {
		c, w := newContext(nil)
		RespondAppError(c, tt.err)
		assert.Equal(t, tt.status, w.Code)
		assert.JSONEq(t, tt.body, w.Body.String())
	}
}

type stubVerifier struct {
	enabled bool
	got     string
}

func (s *stubVerifier) Enabled() bool { return s.enabled }

func (s *stubVerifier) Verify(_ context.Context, token, _ string) error {
	s.got = token
	if token != "ok" {
		return apperr.ErrForbidden
	}
	return nil
}

func TestCheckVerification(t *testing.T) {
	c, _ := newContext(nil)
	assert.True(t, CheckVerification(c, nil, ""))
	assert.True(t, CheckVerification(c, &stubVerifier{}, ""))

	v := &stubVerifier{enabled: true}
	c, _ = newContext(nil)
	assert.True(t, CheckVerification(c, v, "", "ok"))
	assert.Equal(t, "ok", v.got)

	c, w := newContext(nil)
	assert.False(t, CheckVerification(c, v, "bad"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
