// Package auth applies repository credentials to HTTP requests. Secrets may
// reference environment variables ("${GOTX_TOKEN}") so they need not be
// written into the configuration file.
package auth

import (
	"net/http"
	"os"
)

// Authenticator adds credentials to an outgoing request.
type Authenticator interface {
	Apply(req *http.Request) error
	Type() Type
}

// Type names an authentication scheme.
type Type string

// Authentication schemes.
const (
	BasicAuthType  Type = "basic"
	HeaderAuthType Type = "header"
	BearerAuthType Type = "bearer"
)

// BasicAuth is HTTP Basic authentication.
type BasicAuth struct {
	Username string
	Password string
}

// Apply sets the Authorization header.
func (b BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(os.ExpandEnv(b.Username), os.ExpandEnv(b.Password))
	return nil
}

// Type returns BasicAuthType.
func (b BasicAuth) Type() Type { return BasicAuthType }

// HeaderAuth sets arbitrary request headers, e.g. an API key.
type HeaderAuth struct {
	Headers map[string]string
}

// Apply sets every configured header.
func (h HeaderAuth) Apply(req *http.Request) error {
	for k, v := range h.Headers {
		req.Header.Set(k, os.ExpandEnv(v))
	}
	return nil
}

// Type returns HeaderAuthType.
func (h HeaderAuth) Type() Type { return HeaderAuthType }

// BearerAuth sends a bearer token.
type BearerAuth struct {
	Token string
}

// Apply sets the Authorization header.
func (b BearerAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+os.ExpandEnv(b.Token))
	return nil
}

// Type returns BearerAuthType.
func (b BearerAuth) Type() Type { return BearerAuthType }

// Credentials maps repository names to their authenticator.
type Credentials map[string]Authenticator

// For returns the authenticator of repo, or nil.
func (c Credentials) For(repo string) Authenticator {
	if c == nil {
		return nil
	}
	return c[repo]
}
