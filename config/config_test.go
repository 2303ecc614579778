package config

import (
	"strings"
	"testing"
	"time"
)

// setValidEnv sets a minimal valid environment for the current test
func setValidEnv(t *testing.T) {
	t.Helper()
	for _, name := range GetEnvVars() {
		t.Setenv(name, "")
	}
	t.Setenv("PORT", "8002")
	t.Setenv("ADDRESS", "127.0.0.1")
	t.Setenv("ENV", "dev")
	t.Setenv("LOG_LEVEL", "info")
}

func TestLoadValidConfig(t *testing.T) {
	setValidEnv(t)
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("INBOX_DIR", "/var/lib/medigraph/inbox")
	t.Setenv("INBOX_INTERVAL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" {
		t.Errorf("Expected port 8002, got %s", cfg.Port)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected env dev, got %s", cfg.Env)
	}
	if cfg.StoreBackend != BackendMemory {
		t.Errorf("Expected memory backend, got %s", cfg.StoreBackend)
	}
	if !cfg.HasLLM() {
		t.Error("Expected HasLLM to be true with an API key")
	}
	if cfg.InboxInterval != 30*time.Second {
		t.Errorf("Expected inbox interval 30s, got %s", cfg.InboxInterval)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	for _, name := range GetEnvVars() {
		t.Setenv(name, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected default address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected default env dev, got %s", cfg.Env)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.StoreBackend != BackendNeo4j {
		t.Errorf("Expected default backend neo4j, got %s", cfg.StoreBackend)
	}
	if cfg.Neo4jURI != "bolt://localhost:7687" {
		t.Errorf("Expected default Neo4j URI, got %s", cfg.Neo4jURI)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("Expected default model gpt-4o-mini, got %s", cfg.OpenAIModel)
	}
	if cfg.InboxInterval != time.Minute {
		t.Errorf("Expected default inbox interval 1m, got %s", cfg.InboxInterval)
	}
	if cfg.HasLLM() {
		t.Error("Expected HasLLM to be false without an API key")
	}
}

func TestInvalidValues(t *testing.T) {
	testCases := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{"port not a number", "PORT", "abc", "PORT must be a valid number"},
		{"port zero", "PORT", "0", "PORT must be between 1 and 65535"},
		{"port too high", "PORT", "65536", "PORT must be between 1 and 65535"},
		{"privileged port", "PORT", "80", "PORT 80 is privileged"},
		{"address", "ADDRESS", "invalid", "ADDRESS must be a valid IP address"},
		{"public address", "ADDRESS", "8.8.8.8", "is a public IP"},
		{"env", "ENV", "invalid", "ENV must be one of"},
		{"log level", "LOG_LEVEL", "invalid", "LOG_LEVEL must be one of"},
		{"backend", "STORE_BACKEND", "sqlite", "STORE_BACKEND must be one of"},
		{"neo4j scheme", "NEO4J_URI", "http://localhost:7474", "scheme must be bolt or neo4j"},
		{"neo4j host", "NEO4J_URI", "bolt://", "must include a host"},
		{"openai base url", "OPENAI_BASE_URL", "not a url", "must be an absolute URL"},
		{"inbox interval too short", "INBOX_INTERVAL", "1s", "at least 10s"},
		{"request body too large", "MAX_REQUEST_BODY", "209715200", "too large"},
		{"log retention", "LOG_RETENTION_WEEKS", "60", "max 52 weeks"},
		{"log file size", "MAX_LOG_FILE_SIZE", "1024", "too small"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setValidEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error for %s=%s, got nil", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("Expected error containing %q, got %v", tc.expected, err)
			}
		})
	}
}

func TestNeo4jURIIgnoredForMemoryBackend(t *testing.T) {
	setValidEnv(t)
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("NEO4J_URI", "http://not-used")

	if _, err := Load(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestValidNeo4jURIs(t *testing.T) {
	for _, uri := range []string{"bolt://localhost:7687", "neo4j://db:7687", "neo4j+s://abc.databases.neo4j.io", "bolt+ssc://10.0.0.5:7687"} {
		if err := validateNeo4jURI(uri); err != nil {
			t.Errorf("Expected %s to be valid, got %v", uri, err)
		}
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
		hasError bool
	}{
		{"dev", EnvDevelopment, false},
		{"development", EnvDevelopment, false},
		{"staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"PRODUCTION", EnvProduction, false},
		{"test", EnvTest, false},
		{"invalid", EnvDevelopment, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for %s, got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for %s: %v", tt.input, err)
			}
			if env != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, env)
			}
		})
	}
}

func TestEnvironmentString(t *testing.T) {
	tests := []struct {
		env      Environment
		expected string
	}{
		{EnvDevelopment, "dev"},
		{EnvStaging, "staging"},
		{EnvProduction, "prod"},
		{EnvTest, "test"},
	}

	for _, tt := range tests {
		if got := tt.env.String(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}
