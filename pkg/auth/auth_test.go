package auth_test

import (
	"net/http"
	"testing"

	"github.com/glorpus-work/gotx/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "https://repo.example/repodata/index.json", http.NoBody)
	require.NoError(t, err)
	return req
}

func TestAuthenticators(t *testing.T) {
	t.Setenv("GOTX_TEST_TOKEN", "from-env")

	tests := []struct {
		name   string
		auth   auth.Authenticator
		typ    auth.Type
		header string
		want   string
	}{
		{
			name:   "basic",
			auth:   auth.BasicAuth{Username: "user", Password: "pass"},
			typ:    auth.BasicAuthType,
			header: "Authorization",
			want:   "Basic dXNlcjpwYXNz",
		},
		{
			name:   "basic with empty credentials",
			auth:   auth.BasicAuth{},
			typ:    auth.BasicAuthType,
			header: "Authorization",
			want:   "Basic Og==",
		},
		{
			name:   "header",
			auth:   auth.HeaderAuth{Headers: map[string]string{"X-API-Key": "k"}},
			typ:    auth.HeaderAuthType,
			header: "X-Api-Key",
			want:   "k",
		},
		{
			name:   "bearer",
			auth:   auth.BearerAuth{Token: "t0k"},
			typ:    auth.BearerAuthType,
			header: "Authorization",
			want:   "Bearer t0k",
		},
		{
			name:   "bearer from environment",
			auth:   auth.BearerAuth{Token: "${GOTX_TEST_TOKEN}"},
			typ:    auth.BearerAuthType,
			header: "Authorization",
			want:   "Bearer from-env",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(t)
			require.NoError(t, tt.auth.Apply(req))
			assert.Equal(t, tt.want, req.Header.Get(tt.header))
			assert.Equal(t, tt.typ, tt.auth.Type())
		})
	}
}

func TestCredentials(t *testing.T) {
	var none auth.Credentials
	assert.Nil(t, none.For("main"))

	creds := auth.Credentials{"main": auth.BearerAuth{Token: "x"}}
	assert.Equal(t, auth.BearerAuthType, creds.For("main").Type())
	assert.Nil(t, creds.For("updates"))
}
