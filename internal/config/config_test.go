package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.Database.Addrs = []string{"localhost:6379"}
	c.OpenAI.APIKey = "sk-test"
	c.ApplyDefaults()
	return c
}

func TestApplyDefaults(t *testing.T) {
	c := validConfig()

	if c.Chunking.MaxTokens != 400 || c.Chunking.OverlapTokens != 50 || c.Chunking.MaxBlockTokens != 800 {
		t.Errorf("chunking defaults = %+v", c.Chunking)
	}
	if c.Index.EmbedBatchSize != 64 {
		t.Errorf("embed batch size = %d, want 64", c.Index.EmbedBatchSize)
	}
	if c.OpenAI.EmbeddingModel != "text-embedding-3-large" || c.OpenAI.Dimensions != 3072 {
		t.Errorf("openai defaults = %+v", c.OpenAI)
	}
	if c.Storage.KeyPrefix != "finsight:" {
		t.Errorf("key prefix = %q", c.Storage.KeyPrefix)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, true},
		{"no addrs", func(c *Config) { c.Database.Addrs = nil }, true},
		{"no api key", func(c *Config) { c.OpenAI.APIKey = "" }, true},
		{"overlap >= max", func(c *Config) { c.Chunking.OverlapTokens = 400 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("FINSIGHT_TEST_KEY", "sk-secret")
	defer os.Unsetenv("FINSIGHT_TEST_KEY")

	in := []byte("api_key: ${FINSIGHT_TEST_KEY}\nport: ${FINSIGHT_TEST_PORT:-8080}\nmissing: ${FINSIGHT_TEST_NONE}")
	got := string(expandEnvVars(in))

	want := "api_key: sk-secret\nport: 8080\nmissing: "
	if got != want {
		t.Errorf("expandEnvVars = %q, want %q", got, want)
	}
}
