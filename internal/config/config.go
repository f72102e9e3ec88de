package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/zhouzirui/wp-fixit/backend/internal/llm/gemini"
	"github.com/zhouzirui/wp-fixit/backend/internal/llm/langchain"
)

// 支持的生成服务提供方。
const (
	ProviderGemini    = "gemini"
	ProviderArk       = "ark"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

const (
	defaultGeminiModel   = "gemini-3-flash-preview"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOllamaModel   = "llama3.1"
	defaultOllamaHost    = "http://localhost:11434"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	Generation GenerationConfig
	Log        LogConfig
	Presets    PresetConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	generation, err := loadGenerationConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		Generation: generation,
		Log:        loadLogConfig(),
		Presets:    PresetConfig{File: strings.TrimSpace(os.Getenv("PRESETS_FILE"))},
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	File  string
	Level slog.Level
}

func loadLogConfig() LogConfig {
	return LogConfig{
		File:  strings.TrimSpace(os.Getenv("LOG_FILE")),
		Level: parseLogLevel(getEnvOrDefault("LOG_LEVEL", "INFO")),
	}
}

// PresetConfig 指向可选的预设目录覆盖文件。
type PresetConfig struct {
	File string
}

// GenerationConfig 描述大模型相关配置。
type GenerationConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string

	// 仅 Ark 使用。
	AccessKey string
	SecretKey string
	Region    string

	Grounding    bool
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	HistoryLimit int
	Timeout      time.Duration
}

// Enabled 表示是否提供了必需的密钥。
func (c GenerationConfig) Enabled() bool {
	if c.Model == "" {
		return false
	}
	switch c.Provider {
	case ProviderOllama:
		return true
	case ProviderArk:
		return c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != "")
	default:
		return c.APIKey != ""
	}
}

// NewChatModel 使用配置创建一个模型实例。
func (c GenerationConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%s credentials or model missing", c.Provider)
	}

	switch c.Provider {
	case ProviderGemini:
		return gemini.NewChatModel(&gemini.Config{
			APIKey:          c.APIKey,
			Model:           c.Model,
			BaseURL:         c.BaseURL,
			GoogleSearch:    c.Grounding,
			Temperature:     toFloat32(c.Temperature),
			TopP:            toFloat32(c.TopP),
			MaxOutputTokens: c.MaxTokens,
		})
	case ProviderArk:
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.BaseURL,
			Region:      c.Region,
			APIKey:      c.APIKey,
			AccessKey:   c.AccessKey,
			SecretKey:   c.SecretKey,
			Model:       c.Model,
			MaxTokens:   c.MaxTokens,
			Temperature: toFloat32(c.Temperature),
			TopP:        toFloat32(c.TopP),
		})
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama:
		backend, err := c.newLangchainModel()
		if err != nil {
			return nil, err
		}
		return langchain.NewChatModel(backend, c.Provider+"/"+c.Model, c.callOptions()...), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %q", c.Provider)
	}
}

func (c GenerationConfig) newLangchainModel() (llms.Model, error) {
	var (
		backend llms.Model
		err     error
	)
	switch c.Provider {
	case ProviderOpenAI:
		opts := []openai.Option{openai.WithToken(c.APIKey), openai.WithModel(c.Model)}
		if c.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(c.BaseURL))
		}
		backend, err = openai.New(opts...)
	case ProviderAnthropic:
		backend, err = anthropic.New(anthropic.WithToken(c.APIKey), anthropic.WithModel(c.Model))
	case ProviderOllama:
		backend, err = ollama.New(ollama.WithModel(c.Model), ollama.WithServerURL(c.BaseURL))
	}
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", c.Provider, err)
	}
	return backend, nil
}

func (c GenerationConfig) callOptions() []llms.CallOption {
	var opts []llms.CallOption
	if c.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*c.Temperature))
	}
	if c.TopP != nil {
		opts = append(opts, llms.WithTopP(*c.TopP))
	}
	if c.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*c.MaxTokens))
	}
	return opts
}

func loadGenerationConfig() (GenerationConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("GENERATION_PROVIDER", ProviderGemini))

	temperature, err := parseOptionalFloatEnv("GENERATION_TEMPERATURE")
	if err != nil {
		return GenerationConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("GENERATION_TOP_P")
	if err != nil {
		return GenerationConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("GENERATION_MAX_TOKENS")
	if err != nil {
		return GenerationConfig{}, err
	}

	grounding, err := parseBoolEnv("GENERATION_GROUNDING", true)
	if err != nil {
		return GenerationConfig{}, err
	}

	historyLimit := 0
	if limit, err := parseOptionalIntEnv("GENERATION_HISTORY_LIMIT"); err != nil {
		return GenerationConfig{}, err
	} else if limit != nil && *limit > 0 {
		historyLimit = *limit
	}

	timeout, err := parseDurationEnv("GENERATION_TIMEOUT", 0)
	if err != nil {
		return GenerationConfig{}, err
	}

	cfg := GenerationConfig{
		Provider:     provider,
		Grounding:    grounding,
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		HistoryLimit: historyLimit,
		Timeout:      timeout,
	}

	switch provider {
	case ProviderGemini:
		cfg.APIKey = firstEnv("GEMINI_API_KEY", "API_KEY")
		cfg.Model = getEnvOrDefault("GEMINI_MODEL", defaultGeminiModel)
		cfg.BaseURL = getEnvOrDefault("GEMINI_BASE_URL", defaultGeminiBaseURL)
	case ProviderArk:
		cfg.APIKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		cfg.AccessKey = strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY"))
		cfg.SecretKey = strings.TrimSpace(os.Getenv("ARK_SECRET_KEY"))
		cfg.Model = strings.TrimSpace(os.Getenv("ARK_MODEL"))
		cfg.BaseURL = getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
		cfg.Region = getEnvOrDefault("ARK_REGION", "cn-beijing")
	case ProviderOpenAI:
		cfg.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		cfg.Model = getEnvOrDefault("OPENAI_MODEL", defaultOpenAIModel)
		cfg.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	case ProviderAnthropic:
		cfg.APIKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
		cfg.Model = strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL"))
	case ProviderOllama:
		cfg.Model = getEnvOrDefault("OLLAMA_MODEL", defaultOllamaModel)
		cfg.BaseURL = getEnvOrDefault("OLLAMA_HOST", defaultOllamaHost)
	default:
		return GenerationConfig{}, fmt.Errorf("invalid GENERATION_PROVIDER value: %q", provider)
	}

	if provider != ProviderGemini {
		// 只有 Gemini 支持搜索溯源。
		cfg.Grounding = false
	}

	return cfg, nil
}

func toFloat32(v *float64) *float32 {
	if v == nil {
		return nil
	}
	val := float32(*v)
	return &val
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
