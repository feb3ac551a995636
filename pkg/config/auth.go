package config

import (
	"fmt"

	"github.com/glorpus-work/gotx/pkg/auth"
)

// AuthConfig holds the credentials of one repository. At most one scheme may
// be set. Secrets may reference environment variables as ${NAME}.
type AuthConfig struct {
	BasicAuth  *BasicAuth  `yaml:"basic,omitempty" toml:"basic,omitempty"`
	HeaderAuth *HeaderAuth `yaml:"header,omitempty" toml:"header,omitempty"`
	BearerAuth *BearerAuth `yaml:"bearer,omitempty" toml:"bearer,omitempty"`
}

// BasicAuth holds configuration for HTTP Basic Authentication.
type BasicAuth struct {
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
}

// HeaderAuth holds configuration for custom header-based authentication.
type HeaderAuth struct {
	Headers map[string]string `yaml:"headers" toml:"headers"`
}

// BearerAuth holds configuration for Bearer token authentication.
type BearerAuth struct {
	Token string `yaml:"token" toml:"token"`
}

func (a *AuthConfig) validate() error {
	if a == nil {
		return nil
	}
	set := 0
	for _, ok := range []bool{a.BasicAuth != nil, a.HeaderAuth != nil, a.BearerAuth != nil} {
		if ok {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("only one of basic, header and bearer auth may be set")
	}
	return nil
}

// Authenticator converts the configuration to an auth.Authenticator, or nil
// when no scheme is set.
func (a *AuthConfig) Authenticator() auth.Authenticator {
	switch {
	case a == nil:
		return nil
	case a.BasicAuth != nil:
		return auth.BasicAuth{Username: a.BasicAuth.Username, Password: a.BasicAuth.Password}
	case a.HeaderAuth != nil:
		return auth.HeaderAuth{Headers: a.HeaderAuth.Headers}
	case a.BearerAuth != nil:
		return auth.BearerAuth{Token: a.BearerAuth.Token}
	}
	return nil
}

// Credentials maps repository names to their authenticator. Repositories
// without credentials are left out; nil is returned when none have any.
func (c *Config) Credentials() auth.Credentials {
	results := make(auth.Credentials, len(c.Repositories))
	for _, repo := range c.Repositories {
		if a := repo.Auth.Authenticator(); a != nil {
			results[repo.Name] = a
		}
	}
	if len(results) == 0 {
		return nil
	}
	return results
}
