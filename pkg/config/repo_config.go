package config

import (
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/repository"
)

// RepositoryConfig represents a single repository entry.
type RepositoryConfig struct {
	Name    string `yaml:"name" toml:"name"`
	BaseURL string `yaml:"baseurl" toml:"baseurl"`
	// Enabled defaults to true when unset.
	Enabled  *bool       `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Priority uint        `yaml:"priority,omitempty" toml:"priority,omitempty"`
	GPGKey   []string    `yaml:"gpgkey,omitempty" toml:"gpgkey,omitempty"`
	Auth     *AuthConfig `yaml:"auth,omitempty" toml:"auth,omitempty"`
}

// IsEnabled reports whether the repository is used.
func (rc *RepositoryConfig) IsEnabled() bool {
	return rc.Enabled == nil || *rc.Enabled
}

// Repository converts the entry to a repository.Repository.
func (rc *RepositoryConfig) Repository() (*repository.Repository, error) {
	r, err := repository.New(rc.Name, rc.BaseURL)
	if err != nil {
		return nil, err
	}
	r.Enabled = rc.IsEnabled()
	r.Priority = rc.Priority
	r.GPGKeys = append([]string(nil), rc.GPGKey...)
	return r, nil
}

// RepositoryList converts every configured repository, enabled or not.
func (c *Config) RepositoryList() ([]*repository.Repository, error) {
	out := make([]*repository.Repository, 0, len(c.Repositories))
	for _, rc := range c.Repositories {
		r, err := rc.Repository()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// AddRepository adds a repository to the configuration.
// Returns an error if a repository with the same name already exists.
func (c *Config) AddRepository(name, baseURL string, enabled bool) error {
	if c.GetRepository(name) != nil {
		return errors.ErrRepositoryExistsWithName(name)
	}
	c.Repositories = append(c.Repositories, &RepositoryConfig{
		Name:    name,
		BaseURL: baseURL,
		Enabled: &enabled,
	})
	return nil
}

// RemoveRepository removes a repository from the configuration.
func (c *Config) RemoveRepository(name string) bool {
	for i, repo := range c.Repositories {
		if repo.Name == name {
			c.Repositories = append(c.Repositories[:i], c.Repositories[i+1:]...)
			return true
		}
	}
	return false
}

// GetRepository gets a repository configuration by name.
func (c *Config) GetRepository(name string) *RepositoryConfig {
	for _, repo := range c.Repositories {
		if repo.Name == name {
			return repo
		}
	}
	return nil
}

// EnableRepository enables or disables a repository.
func (c *Config) EnableRepository(name string, enabled bool) bool {
	repo := c.GetRepository(name)
	if repo == nil {
		return false
	}
	repo.Enabled = &enabled
	return true
}
