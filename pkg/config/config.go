// Package config holds the process-wide defaults and startup configuration
// for the Ntropy MCP bridge. Values are read once at startup and passed down
// explicitly; nothing in here is mutated while serving.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server identity advertised during the MCP initialize handshake.
const (
	ServerName    = "ntropy-mcp"
	ServerVersion = "0.2.0"
)

const (
	DefaultBaseURL     = "https://api.ntropy.com/v3"
	DefaultHTTPTimeout = 15 * time.Second
	DefaultListLimit   = 10
	DefaultListOffset  = 0
)

// Environment variable names shared by the server and the client driver.
const (
	APIKeyEnv  = "NTROPY_API_KEY"
	BaseURLEnv = "NTROPY_BASE_URL"
)

// LoadDotenv loads a .env file from the working directory when one exists.
// A missing file is not an error.
func LoadDotenv() {
	_ = godotenv.Load()
}

// ResolveAPIKey picks the API key from the explicit flag value, falling back
// to the environment. An empty result is a fatal configuration error for the
// server, reported before it begins serving.
func ResolveAPIKey(flagValue string) (string, error) {
	if key := strings.TrimSpace(flagValue); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("ntropy API key is required: set --api-key or %s", APIKeyEnv)
}

// ResolveBaseURL picks the API base URL from the explicit flag value, then
// the environment, then the production default.
func ResolveBaseURL(flagValue string) string {
	if u := strings.TrimSpace(flagValue); u != "" {
		return u
	}
	if u := strings.TrimSpace(os.Getenv(BaseURLEnv)); u != "" {
		return u
	}
	return DefaultBaseURL
}
