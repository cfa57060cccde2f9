package config

import "testing"

func TestResolveAPIKey_FlagWinsOverEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "env-key")

	key, err := ResolveAPIKey("flag-key")
	if err != nil {
		t.Fatalf("ResolveAPIKey failed: %v", err)
	}
	if key != "flag-key" {
		t.Fatalf("expected flag value to win, got %q", key)
	}
}

func TestResolveAPIKey_FallsBackToEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "env-key")

	key, err := ResolveAPIKey("")
	if err != nil {
		t.Fatalf("ResolveAPIKey failed: %v", err)
	}
	if key != "env-key" {
		t.Fatalf("expected env value, got %q", key)
	}
}

func TestResolveAPIKey_MissingIsError(t *testing.T) {
	t.Setenv(APIKeyEnv, "")

	if _, err := ResolveAPIKey("   "); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestResolveBaseURL_Precedence(t *testing.T) {
	t.Setenv(BaseURLEnv, "https://env.example/v3")

	if got := ResolveBaseURL("https://flag.example/v3"); got != "https://flag.example/v3" {
		t.Fatalf("expected flag value to win, got %q", got)
	}
	if got := ResolveBaseURL(""); got != "https://env.example/v3" {
		t.Fatalf("expected env value, got %q", got)
	}

	t.Setenv(BaseURLEnv, "")
	if got := ResolveBaseURL(""); got != DefaultBaseURL {
		t.Fatalf("expected default, got %q", got)
	}
}
