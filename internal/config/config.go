package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Setting is the name of an environment variable the samples read.
type Setting string

const (
	Endpoint             Setting = "AZURE_OPENAI_ENDPOINT"
	APIKey               Setting = "AZURE_OPENAI_API_KEY"
	Deployment           Setting = "AZURE_OPENAI_DEPLOYMENT_ID"
	APIVersion           Setting = "AZURE_OPENAI_API_VERSION"
	AuthMode             Setting = "AZURE_OPENAI_AUTH"
	Provider             Setting = "AZURE_OPENAI_PROVIDER"
	ImageDeployment      Setting = "AZURE_OPENAI_IMAGE_DEPLOYMENT"
	CompletionDeployment Setting = "AZURE_OPENAI_COMPLETION_DEPLOYMENT"
	WhisperDeployment    Setting = "AZURE_OPENAI_WHISPER_DEPLOYMENT"
	TTSDeployment        Setting = "AZURE_OPENAI_TTS_DEPLOYMENT"
	SearchEndpoint       Setting = "AZURE_AI_SEARCH_ENDPOINT"
	SearchAPIKey         Setting = "AZURE_AI_SEARCH_API_KEY"
	SearchIndex          Setting = "AZURE_AI_SEARCH_INDEX"
	ProxyURL             Setting = "AZURE_OPENAI_PROXY_URL"
	ProxyUsername        Setting = "AZURE_OPENAI_PROXY_USERNAME"
	ProxyPassword        Setting = "AZURE_OPENAI_PROXY_PASSWORD"
	PollInterval         Setting = "AZOAI_POLL_INTERVAL"
	PollMaxInterval      Setting = "AZOAI_POLL_MAX_INTERVAL"
	PollTimeout          Setting = "AZOAI_POLL_TIMEOUT"
	RetryMax             Setting = "AZOAI_RETRY_MAX"
	HistoryPath          Setting = "HISTORY_DB_PATH"
	LogLevel             Setting = "LOG_LEVEL"
)

// SettingInfo describes how a Setting maps into the config file.
type SettingInfo struct {
	Setting Setting
	Key     string
	Secret  bool
	Desc    string
}

// Settings lists every Setting in display order.
var Settings = []SettingInfo{
	{Endpoint, "openai.endpoint", false, "Azure OpenAI resource endpoint"},
	{APIKey, "openai.api_key", true, "Azure OpenAI API key (key auth)"},
	{Deployment, "openai.deployment", false, "Chat / assistant deployment name"},
	{APIVersion, "openai.api_version", false, "Azure OpenAI API version"},
	{AuthMode, "openai.auth", false, "Credential strategy: key or identity"},
	{Provider, "openai.provider", false, "Service flavour: azure or openai"},
	{ImageDeployment, "openai.deployments.image", false, "Image generation deployment"},
	{CompletionDeployment, "openai.deployments.completion", false, "Legacy completion deployment"},
	{WhisperDeployment, "openai.deployments.whisper", false, "Transcription deployment"},
	{TTSDeployment, "openai.deployments.tts", false, "Speech synthesis deployment"},
	{SearchEndpoint, "search.endpoint", false, "Azure AI Search endpoint"},
	{SearchAPIKey, "search.api_key", true, "Azure AI Search API key"},
	{SearchIndex, "search.index", false, "Azure AI Search index name"},
	{ProxyURL, "proxy.url", false, "HTTP proxy URL"},
	{ProxyUsername, "proxy.username", false, "HTTP proxy user"},
	{ProxyPassword, "proxy.password", true, "HTTP proxy password"},
	{PollInterval, "poll.interval", false, "Delay between status fetches"},
	{PollMaxInterval, "poll.max_interval", false, "Backoff ceiling for status fetches"},
	{PollTimeout, "poll.timeout", false, "Give up waiting after this long (0 waits forever)"},
	{RetryMax, "retry.max_retries", false, "Retries for transient service errors"},
	{HistoryPath, "history.db_path", false, "SQLite history database"},
	{LogLevel, "log_level", false, "debug, info, warn or error"},
}

// Key returns the config file key for s, or "" when s is unknown.
func (s Setting) Key() string {
	for _, info := range Settings {
		if info.Setting == s {
			return info.Key
		}
	}
	return ""
}

const (
	AuthKey      = "key"
	AuthIdentity = "identity"

	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
)

// ClientType is the transport used to reach an MCP server.
type ClientType string

const (
	ClientTypeSSE            ClientType = "sse"
	ClientTypeStreamableHTTP ClientType = "streamable_http"
	ClientTypeStdio          ClientType = "stdio"
)

// Config holds the application configuration
type Config struct {
	OpenAI     OpenAIConfig      `mapstructure:"openai"`
	Search     SearchConfig      `mapstructure:"search"`
	Proxy      ProxyConfig       `mapstructure:"proxy"`
	Poll       PollConfig        `mapstructure:"poll"`
	Retry      RetryConfig       `mapstructure:"retry"`
	History    HistoryConfig     `mapstructure:"history"`
	MCPServers []MCPServerConfig `mapstructure:"mcp_servers"`
	LogLevel   string            `mapstructure:"log_level"`
}

// OpenAIConfig holds the model service configuration
type OpenAIConfig struct {
	Provider    string            `mapstructure:"provider"`
	Endpoint    string            `mapstructure:"endpoint"`
	APIKey      string            `mapstructure:"api_key"`
	APIVersion  string            `mapstructure:"api_version"`
	Auth        string            `mapstructure:"auth"`
	Deployment  string            `mapstructure:"deployment"`
	Deployments DeploymentsConfig `mapstructure:"deployments"`
}

// DeploymentsConfig names the per-surface deployments.
type DeploymentsConfig struct {
	Image      string `mapstructure:"image"`
	Completion string `mapstructure:"completion"`
	Whisper    string `mapstructure:"whisper"`
	TTS        string `mapstructure:"tts"`
}

// SearchConfig holds the Azure AI Search data source configuration
type SearchConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	Index    string `mapstructure:"index"`
}

// ProxyConfig holds the optional HTTP proxy configuration
type ProxyConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// PollConfig tunes how long-running jobs are awaited.
type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxInterval time.Duration `mapstructure:"max_interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RetryConfig tunes retries of transient service errors.
type RetryConfig struct {
	MaxRetries      uint64        `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// HistoryConfig holds the transcript journal configuration
type HistoryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// MCPServerConfig describes an MCP server offering function tools.
type MCPServerConfig struct {
	Name    string            `mapstructure:"name"`
	Type    ClientType        `mapstructure:"type"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
}

// MissingSettingsError reports required settings that are absent or blank.
type MissingSettingsError struct {
	Names []string
}

func (e *MissingSettingsError) Error() string {
	return "missing required configuration: " + strings.Join(e.Names, ", ")
}

// DefaultAPIVersion is the Azure OpenAI API version used when none is set.
const DefaultAPIVersion = "2025-01-01-preview"

func setDefaults(v *viper.Viper) {
	v.SetDefault("openai.provider", ProviderAzure)
	v.SetDefault("openai.auth", AuthKey)
	// Assistants, vector stores, batches and uploads are only served by
	// preview API versions on Azure.
	v.SetDefault("openai.api_version", DefaultAPIVersion)
	v.SetDefault("openai.deployments.image", "dalle-3")
	v.SetDefault("openai.deployments.completion", "gpt-35-turbo-instruct")
	v.SetDefault("openai.deployments.whisper", "whisper")
	v.SetDefault("openai.deployments.tts", "tts")
	v.SetDefault("poll.interval", time.Second)
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_interval", 500*time.Millisecond)
	v.SetDefault("retry.max_interval", 10*time.Second)
	v.SetDefault("history.db_path", "history.db")
	v.SetDefault("log_level", "info")
}

// Load reads the configuration from the environment and an optional
// config.yaml (or the file named by CONFIG_PATH). Environment variables take
// precedence over the file. Load fails before returning anything if one of
// the required settings is missing or blank.
func Load(required ...Setting) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for _, info := range Settings {
		envs := []string{string(info.Setting)}
		if info.Setting == APIKey {
			envs = append(envs, "OPENAI_API_KEY")
		}
		if err := v.BindEnv(append([]string{info.Key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", info.Setting, err)
		}
	}

	explicit := os.Getenv("CONFIG_PATH")
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if missing := missingSettings(v, required); len(missing) > 0 {
		return nil, &MissingSettingsError{Names: missing}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	config.OpenAI.Auth = strings.ToLower(config.OpenAI.Auth)
	config.OpenAI.Provider = strings.ToLower(config.OpenAI.Provider)

	return &config, nil
}

// missingSettings keeps the order of required. The API key is satisfied by
// identity auth, and the endpoint is optional for the public OpenAI service.
func missingSettings(v *viper.Viper, required []Setting) []string {
	var missing []string
	for _, s := range required {
		switch {
		case s == APIKey && strings.EqualFold(v.GetString(AuthMode.Key()), AuthIdentity):
			continue
		case s == Endpoint && strings.EqualFold(v.GetString(Provider.Key()), ProviderOpenAI):
			continue
		}
		key := s.Key()
		if key == "" || strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, string(s))
		}
	}
	return missing
}

// Lookup returns the effective value of every setting, for display.
func Lookup() (map[Setting]string, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	return map[Setting]string{
		Endpoint:             cfg.OpenAI.Endpoint,
		APIKey:               cfg.OpenAI.APIKey,
		Deployment:           cfg.OpenAI.Deployment,
		APIVersion:           cfg.OpenAI.APIVersion,
		AuthMode:             cfg.OpenAI.Auth,
		Provider:             cfg.OpenAI.Provider,
		ImageDeployment:      cfg.OpenAI.Deployments.Image,
		CompletionDeployment: cfg.OpenAI.Deployments.Completion,
		WhisperDeployment:    cfg.OpenAI.Deployments.Whisper,
		TTSDeployment:        cfg.OpenAI.Deployments.TTS,
		SearchEndpoint:       cfg.Search.Endpoint,
		SearchAPIKey:         cfg.Search.APIKey,
		SearchIndex:          cfg.Search.Index,
		ProxyURL:             cfg.Proxy.URL,
		ProxyUsername:        cfg.Proxy.Username,
		ProxyPassword:        cfg.Proxy.Password,
		PollInterval:         cfg.Poll.Interval.String(),
		PollMaxInterval:      cfg.Poll.MaxInterval.String(),
		PollTimeout:          cfg.Poll.Timeout.String(),
		RetryMax:             fmt.Sprint(cfg.Retry.MaxRetries),
		HistoryPath:          cfg.History.DBPath,
		LogLevel:             cfg.LogLevel,
	}, nil
}
