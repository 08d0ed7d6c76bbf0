package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 1.0, cfg.LLM.Temperature)
	assert.Equal(t, 1.0, cfg.LLM.TopP)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Equal(t, 512, cfg.Chunker.ChunkSize)
	assert.Equal(t, "openai", cfg.Embedder.Type)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, filepath.Join("data", "videos.sqlite3"), cfg.Database.DSN)
	assert.Equal(t, []string{"en-US", "en", "de"}, cfg.YouTube.Languages)
	assert.Equal(t, "OPENAI_API_KEY", cfg.OpenAI.APIKeyEnv)
	assert.Equal(t, "GEMINI_API_KEY", cfg.Gemini.APIKeyEnv)
	assert.NoError(t, cfg.Validate())
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
llm:
  provider: Ollama
  temperature: 0
vector_store:
  type: qdrant
cache:
  type: redis
chunker:
  chunk_size: 256
  preprocess: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "llama3.1", cfg.LLM.Model)
	assert.Zero(t, cfg.LLM.Temperature, "explicit zero is kept")
	assert.Equal(t, 1.0, cfg.LLM.TopP)
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "http://localhost:6333", cfg.VectorStore.Qdrant.URL)
	require.NotNil(t, cfg.Cache.Redis)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 256, cfg.Chunker.ChunkSize)
	assert.True(t, cfg.Chunker.Preprocess)
	assert.Equal(t, "ollama", cfg.Embedder.Type)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.LLM.Model = "gpt-4o"
	cfg.Tokenizers = map[string]string{"llama3.1": "/models/llama/tokenizer.json"}
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadDefaultWritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "ytai", "config.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
}

func TestApplyEnv(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"YTGPT_LLM_PROVIDER": "Gemini",
		"YTGPT_TEMPERATURE":  "0.5",
		"YTGPT_TOP_P":        "0.8",
		"ENVIRONMENT":        "production",
	}))
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "gemini-1.5-flash", cfg.LLM.Model)
	assert.Equal(t, 0.5, cfg.LLM.Temperature)
	assert.Equal(t, 0.8, cfg.LLM.TopP)
	assert.True(t, cfg.Production())

	cfg = defaultConfig()
	require.NoError(t, cfg.ApplyEnv(lookupFrom(map[string]string{"YTGPT_LLM_PROVIDER": "ollama", "YTGPT_MODEL": "mistral"})))
	assert.Equal(t, "mistral", cfg.LLM.Model)

	cfg = defaultConfig()
	require.NoError(t, cfg.ApplyEnv(lookupFrom(nil)))
	assert.Equal(t, defaultConfig(), cfg)
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	cfg := defaultConfig()
	assert.Error(t, cfg.ApplyEnv(lookupFrom(map[string]string{"YTGPT_TEMPERATURE": "warm"})))

	cfg = defaultConfig()
	assert.Error(t, cfg.ApplyEnv(lookupFrom(map[string]string{"YTGPT_TOP_P": "1.5"})))

	cfg = defaultConfig()
	assert.Error(t, cfg.ApplyEnv(lookupFrom(map[string]string{"YTGPT_LLM_PROVIDER": "anthropic"})))
}
