package errs

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNewHttpError(t *testing.T) {
	tests := []struct {
		name       string
		body       []byte
		wantReason string
		wantBody   string
	}{
		{
			name:       "oauth error body",
			body:       []byte(`{"error":"invalid_grant","error_description":"Invalid authorization code"}`),
			wantReason: "invalid_grant",
			wantBody:   `{"error":"invalid_grant","error_description":"Invalid authorization code"}`,
		},
		{
			name:       "plain text body",
			body:       []byte("bad gateway\n"),
			wantReason: "token request failed",
			wantBody:   "bad gateway",
		},
		{
			name:       "no body",
			body:       nil,
			wantReason: "token request failed",
			wantBody:   "",
		},
		{
			name:       "json without error field",
			body:       []byte(`{"message":"nope"}`),
			wantReason: "token request failed",
			wantBody:   `{"message":"nope"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewHttpError(http.StatusBadRequest, tt.body, "token request failed")
			assert.Equal(t, http.StatusBadRequest, e.Code())
			assert.Equal(t, tt.wantReason, e.Reason())
			assert.Equal(t, tt.wantBody, e.Body())
			assert.Contains(t, e.Error(), "HttpError[400]")
		})
	}
}

func TestExtractHttpError(t *testing.T) {
	err := errors.Wrap(NewHttpError(http.StatusUnauthorized, nil, "unauthorized"), "refresh")

	code, ok := ExtractHttpError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, code)

	_, ok = ExtractHttpError(errors.New("plain"))
	assert.False(t, ok)
}
