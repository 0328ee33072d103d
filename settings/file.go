package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fernet/fernet-go"
	"gopkg.in/yaml.v3"
)

const keyFileName = "key"

var _ Store = (*FileStore)(nil)

// FileStore keeps Settings in a YAML file. The password is sealed with a
// Fernet key stored in a "key" file next to it, generated on first save.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the settings file location.
func (f *FileStore) Path() string {
	return f.path
}

// document is the on-disk layout. Password holds the sealed token.
type document struct {
	Settings `yaml:",inline"`

	Password string `yaml:"password,omitempty"`
}

// Exists reports whether a settings file is present.
func (f *FileStore) Exists() bool {
	_, err := os.Stat(f.path)

	return err == nil
}

// Load reads and unseals the settings file.
func (f *FileStore) Load() (Settings, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("%w: %s", ErrNotFound, f.path)
	}

	if err != nil {
		return Settings{}, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings %s: %w", f.path, err)
	}

	s := doc.Settings

	if doc.Password != "" {
		key, err := f.readKey()
		if err != nil {
			return Settings{}, err
		}

		// A zero ttl disables token expiry.
		msg := fernet.VerifyAndDecrypt([]byte(doc.Password), 0, []*fernet.Key{key})
		if msg == nil {
			return Settings{}, errors.New("failed to unseal password: invalid token")
		}

		s.Password = string(msg)
	}

	return s, nil
}

// Save seals the password and writes s with mode 0600.
func (f *FileStore) Save(s Settings) error {
	if strings.TrimSpace(f.path) == "" {
		return errors.New("settings path is required")
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}

	doc := document{Settings: s}

	if s.Password != "" {
		key, err := f.loadOrCreateKey()
		if err != nil {
			return err
		}

		tok, err := fernet.EncryptAndSign([]byte(s.Password), key)
		if err != nil {
			return fmt.Errorf("failed to seal password: %w", err)
		}

		doc.Password = string(tok)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	return os.WriteFile(f.path, data, 0o600)
}

func (f *FileStore) keyPath() string {
	return filepath.Join(filepath.Dir(f.path), keyFileName)
}

func (f *FileStore) readKey() (*fernet.Key, error) {
	data, err := os.ReadFile(f.keyPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read settings key: %w", err)
	}

	key, err := fernet.DecodeKey(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode settings key: %w", err)
	}

	return key, nil
}

func (f *FileStore) loadOrCreateKey() (*fernet.Key, error) {
	key, err := f.readKey()
	if err == nil {
		return key, nil
	}

	if _, statErr := os.Stat(f.keyPath()); !errors.Is(statErr, os.ErrNotExist) {
		return nil, err
	}

	var k fernet.Key
	if err := k.Generate(); err != nil {
		return nil, fmt.Errorf("failed to generate settings key: %w", err)
	}

	if err := os.WriteFile(f.keyPath(), []byte(k.Encode()+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("failed to save settings key: %w", err)
	}

	return &k, nil
}
