package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider names accepted in llm.provider.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

// LLMConfig selects the chat provider and its inference parameters.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	MaxTokens   int     `yaml:"max_tokens"`
	// AvailableModels are the selectable chat models per provider.
	AvailableModels map[string][]string `yaml:"available_models,omitempty"`
}

// OpenAIConfig holds configuration for the OpenAI-compatible API.
type OpenAIConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	EmbeddingModel string `yaml:"embedding_model"`
	TimeoutSecs    int    `yaml:"timeout_secs"`
}

// OllamaConfig holds the address of a local Ollama server.
type OllamaConfig struct {
	URL            string `yaml:"url"`
	EmbeddingModel string `yaml:"embedding_model"`
	TimeoutSecs    int    `yaml:"timeout_secs"`
}

// GeminiConfig configures the Gemini API.
type GeminiConfig struct {
	APIKeyEnv      string `yaml:"api_key_env"`
	EmbeddingModel string `yaml:"embedding_model"`
}

// EmbedderConfig selects the text embedder: openai, ollama, gemini or hashing.
type EmbedderConfig struct {
	Type      string `yaml:"type"`
	Dimension int    `yaml:"dimension,omitempty"`
}

// ChunkerConfig configures how transcripts are split for indexing.
type ChunkerConfig struct {
	ChunkSize  int  `yaml:"chunk_size"`
	Preprocess bool `yaml:"preprocess"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// DatabaseConfig selects the relational store. DSN is a file path for sqlite.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// CacheConfig selects where provider model lists are cached.
type CacheConfig struct {
	Type  string       `yaml:"type"`
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig contains connection details for Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// YouTubeConfig configures transcript and metadata retrieval.
type YouTubeConfig struct {
	Languages             []string `yaml:"languages"`
	OEmbedURL             string   `yaml:"oembed_url"`
	MetadataTimeoutSecs   int      `yaml:"metadata_timeout_secs"`
	TranscriptTimeoutSecs int      `yaml:"transcript_timeout_secs"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LLM         LLMConfig         `yaml:"llm"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Ollama      OllamaConfig      `yaml:"ollama"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Database    DatabaseConfig    `yaml:"database"`
	Cache       CacheConfig       `yaml:"cache"`
	YouTube     YouTubeConfig     `yaml:"youtube"`
	// Tokenizers maps model names to HuggingFace tokenizer.json files.
	Tokenizers  map[string]string `yaml:"tokenizers,omitempty"`
	Log         LogConfig         `yaml:"log"`
	OutputDir   string            `yaml:"output_dir"`
	Environment string            `yaml:"environment,omitempty"`
}

// Production reports whether the app runs in the production environment.
func (c *AppConfig) Production() bool { return c.Environment == "production" }

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	// temperature and top_p may be 0, so they are defaulted before decoding
	cfg := AppConfig{LLM: LLMConfig{Temperature: 1.0, TopP: 1.0}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ytai/config.yaml.
// If neither exists, it writes defaults to ~/.config/ytai/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv overrides settings from YTGPT_* variables and ENVIRONMENT.
// lookup is usually os.LookupEnv.
func (c *AppConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("YTGPT_LLM_PROVIDER"); ok && v != "" && !strings.EqualFold(v, c.LLM.Provider) {
		c.LLM.Provider = strings.ToLower(v)
		c.LLM.Model = defaultModel(c.LLM.Provider)
	}
	if v, ok := lookup("YTGPT_MODEL"); ok && v != "" {
		c.LLM.Model = v
	}
	for name, dst := range map[string]*float64{
		"YTGPT_TEMPERATURE": &c.LLM.Temperature,
		"YTGPT_TOP_P":       &c.LLM.TopP,
	} {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = f
	}
	if v, ok := lookup("ENVIRONMENT"); ok && v != "" {
		c.Environment = v
	}
	return c.Validate()
}

// Validate checks values that cannot be defaulted.
func (c *AppConfig) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2], got %v", c.LLM.Temperature)
	}
	if c.LLM.TopP < 0 || c.LLM.TopP > 1 {
		return fmt.Errorf("llm.top_p must be within [0, 1], got %v", c.LLM.TopP)
	}
	if c.Chunker.ChunkSize <= 0 {
		return fmt.Errorf("chunker.chunk_size must be positive, got %d", c.Chunker.ChunkSize)
	}
	return nil
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderGemini:
		return "gemini-1.5-flash"
	case ProviderOllama:
		return "llama3.1"
	default:
		return "gpt-4o-mini"
	}
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ytai", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{LLM: LLMConfig{Temperature: 1.0, TopP: 1.0}}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderOpenAI
	}
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModel(cfg.LLM.Provider)
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2048
	}
	if cfg.LLM.AvailableModels == nil {
		cfg.LLM.AvailableModels = map[string][]string{
			ProviderOpenAI: {"gpt-4o-mini", "gpt-4o", "gpt-4-turbo", "gpt-3.5-turbo", "gpt-4"},
			ProviderGemini: {"gemini-1.5-flash", "gemini-1.5-pro"},
		}
	}

	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OpenAI.TimeoutSecs == 0 {
		cfg.OpenAI.TimeoutSecs = 60
	}
	if cfg.Ollama.URL == "" {
		cfg.Ollama.URL = "http://localhost:11434"
	}
	if cfg.Ollama.EmbeddingModel == "" {
		cfg.Ollama.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.Ollama.TimeoutSecs == 0 {
		cfg.Ollama.TimeoutSecs = 60
	}
	if cfg.Gemini.APIKeyEnv == "" {
		cfg.Gemini.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Gemini.EmbeddingModel == "" {
		cfg.Gemini.EmbeddingModel = "text-embedding-004"
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = cfg.LLM.Provider
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 512
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant == nil {
		cfg.VectorStore.Qdrant = &QdrantConfig{}
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = filepath.Join("data", "videos.sqlite3")
	}
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "memory"
	}
	if cfg.Cache.Type == "redis" && cfg.Cache.Redis == nil {
		cfg.Cache.Redis = &RedisConfig{}
	}
	if r := cfg.Cache.Redis; r != nil && r.Addr == "" {
		r.Addr = "localhost:6379"
	}
	if len(cfg.YouTube.Languages) == 0 {
		cfg.YouTube.Languages = []string{"en-US", "en", "de"}
	}
	if cfg.YouTube.OEmbedURL == "" {
		cfg.YouTube.OEmbedURL = "https://noembed.com/embed"
	}
	if cfg.YouTube.MetadataTimeoutSecs == 0 {
		cfg.YouTube.MetadataTimeoutSecs = 5
	}
	if cfg.YouTube.TranscriptTimeoutSecs == 0 {
		cfg.YouTube.TranscriptTimeoutSecs = 15
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "responses"
	}
}
