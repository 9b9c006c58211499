package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/canban-ai/canban/internal/config"
)

// Settings holds the persisted credentials the desktop client manages.
type Settings struct {
	SupabaseURL  string `json:"supabase_url"`
	SupabaseKey  string `json:"supabase_key"`
	OpenAIAPIKey string `json:"openai_api_key"`
	Saved        bool   `json:"saved"`
}

// SettingsService reads and writes the well-known credential file under the
// user's home directory.
type SettingsService struct {
	path string
}

// NewSettingsService creates a SettingsService against ~/.canban/.env. An
// unresolvable home directory falls back to the working directory.
func NewSettingsService() *SettingsService {
	dir := config.CredentialDirName
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, config.CredentialDirName)
	}
	return &SettingsService{path: filepath.Join(dir, config.CredentialFileName)}
}

// NewSettingsServiceAt creates a SettingsService against an explicit file
// path, for tests.
func NewSettingsServiceAt(path string) *SettingsService {
	return &SettingsService{path: path}
}

// Load reads the credential file. A missing file yields empty settings with
// Saved=false, not an error.
func (s *SettingsService) Load() (*Settings, error) {
	creds, err := config.ParseCredentialFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return &Settings{
		SupabaseURL:  creds["supabase_url"],
		SupabaseKey:  creds["supabase_key"],
		OpenAIAPIKey: creds["openai_api_key"],
		Saved:        true,
	}, nil
}

// Save writes the credential file, creating the directory if needed.
func (s *SettingsService) Save(in Settings) (*Settings, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}

	content := fmt.Sprintf(`# canban configuration
SUPABASE_URL=%s
SUPABASE_KEY=%s
OPENAI_API_KEY=%s
`, in.SupabaseURL, in.SupabaseKey, in.OpenAIAPIKey)

	if err := os.WriteFile(s.path, []byte(content), 0o600); err != nil {
		return nil, fmt.Errorf("write settings: %w", err)
	}

	out := in
	out.Saved = true
	return &out, nil
}
