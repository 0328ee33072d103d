// Package settings persists the user's connection and repository choices
// between runs.
package settings

import (
	"errors"

	"github.com/ruffel/wslkit"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("settings not found")

// Settings is the persisted user state.
type Settings struct {
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Username   string `yaml:"username,omitempty"`
	Password   string `yaml:"-"`
	UseKeyAuth bool   `yaml:"useKeyAuth,omitempty"`
	KeyPath    string `yaml:"keyPath,omitempty"`

	WorkDir string `yaml:"workDir,omitempty"`
	RepoURL string `yaml:"repoURL,omitempty"`
	Branch  string `yaml:"branch,omitempty"`

	SelectedTargetDevice string `yaml:"selectedTargetDevice,omitempty"`
}

// Store loads and saves Settings.
type Store interface {
	Load() (Settings, error)
	Save(s Settings) error
	Exists() bool
}

// Connection returns the SSH credentials held in s.
func (s Settings) Connection() wslkit.Connection {
	return wslkit.Connection{
		Host:       s.Host,
		Port:       s.Port,
		Username:   s.Username,
		Password:   s.Password,
		UseKeyAuth: s.UseKeyAuth,
		KeyPath:    s.KeyPath,
	}.WithDefaults()
}

// WithConnection returns s with its credentials replaced by conn.
func (s Settings) WithConnection(conn wslkit.Connection) Settings {
	s.Host = conn.Host
	s.Port = conn.Port
	s.Username = conn.Username
	s.Password = conn.Password
	s.UseKeyAuth = conn.UseKeyAuth
	s.KeyPath = conn.KeyPath

	return s
}
