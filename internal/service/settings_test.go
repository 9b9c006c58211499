package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSettingsLoadMissingFile(t *testing.T) {
	svc := NewSettingsServiceAt(filepath.Join(t.TempDir(), ".env"))

	got, err := svc.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Saved {
		t.Fatal("missing file must report saved=false")
	}
	if got.SupabaseURL != "" || got.OpenAIAPIKey != "" {
		t.Fatalf("expected empty settings, got %+v", got)
	}
}

func TestSettingsSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".env")
	svc := NewSettingsServiceAt(path)

	saved, err := svc.Save(Settings{
		SupabaseURL:  "https://proj.supabase.co",
		SupabaseKey:  "service-key",
		OpenAIAPIKey: "sk-test",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !saved.Saved {
		t.Fatal("Save must report saved=true")
	}

	got, err := svc.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SupabaseURL != "https://proj.supabase.co" || got.SupabaseKey != "service-key" || got.OpenAIAPIKey != "sk-test" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.Saved {
		t.Fatal("Load after Save must report saved=true")
	}
}

func TestSettingsLoadStripsQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nSUPABASE_URL=\"https://quoted.supabase.co\"\nOPENAI_API_KEY='sk-quoted'\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := NewSettingsServiceAt(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SupabaseURL != "https://quoted.supabase.co" || got.OpenAIAPIKey != "sk-quoted" {
		t.Fatalf("quotes not stripped: %+v", got)
	}
}

func TestSettingsSaveFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if _, err := NewSettingsServiceAt(path).Save(Settings{OpenAIAPIKey: "sk"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o, want 600", perm)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "OPENAI_API_KEY=sk") {
		t.Fatalf("unexpected file content: %s", data)
	}
}
