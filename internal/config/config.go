package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultConfigPath = "lawmcp.toml"
	DefaultHost       = "0.0.0.0"
	DefaultPort       = 10000
	DefaultMCPPath    = "/mcp"

	TransportStreamableHTTP = "streamable-http"
	TransportStdio          = "stdio"

	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"

	SearchBackendDuckDuckGo = "duckduckgo"

	DefaultSearchMaxResults = 5
)

// ErrInvalid prefixes every validation failure so the CLI can map it to
// the config exit code.
var ErrInvalid = errors.New("CONFIG_INVALID")

type Config struct {
	Server ServerConfig `toml:"server"`
	LLM    LLMConfig    `toml:"llm"`
	Search SearchConfig `toml:"search"`
	Log    LogConfig    `toml:"log"`
}

type ServerConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	MCPPath   string `toml:"mcp_path"`
	Transport string `toml:"transport"`
	// PortRangeStart and PortRangeEnd bound the free-port probe used by
	// `serve --auto-port` and `freeport`.
	PortRangeStart int `toml:"port_range_start"`
	PortRangeEnd   int `toml:"port_range_end"`
	// RateLimitRPS and RateLimitBurst define per-IP token bucket limits on
	// the MCP path. Zero disables limiting.
	RateLimitRPS   float64 `toml:"rate_limit_rps"`
	RateLimitBurst int     `toml:"rate_limit_burst"`
	// TrustedProxies lists peer IPs or CIDRs whose X-Forwarded-For header
	// names the client. Other peers are keyed on their own address.
	TrustedProxies []string `toml:"trusted_proxies"`
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	// Model and BaseURL may be empty; the provider default is used.
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
	// APIKey is runtime-only. It comes from the provider's env var and is
	// never written back to disk.
	APIKey string `toml:"-"`
}

type SearchConfig struct {
	Enabled    bool   `toml:"enabled"`
	Backend    string `toml:"backend"`
	MaxResults int    `toml:"max_results"`
	BaseURL    string `toml:"base_url"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:           DefaultHost,
			Port:           DefaultPort,
			MCPPath:        DefaultMCPPath,
			Transport:      TransportStreamableHTTP,
			PortRangeStart: 8000,
			PortRangeEnd:   9000,
		},
		LLM: LLMConfig{
			Provider: ProviderGroq,
		},
		Search: SearchConfig{
			Enabled:    true,
			Backend:    SearchBackendDuckDuckGo,
			MaxResults: DefaultSearchMaxResults,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Options for loading config.
type Options struct {
	// ConfigPath is optional; a missing file is not an error.
	ConfigPath string
	// DotEnvFiles are read in order; earlier files win. Defaults to
	// .env.local then .env.
	DotEnvFiles  []string
	SkipValidate bool
	// Overrides apply last (flags > env > dotenv > file > defaults).
	Overrides *Overrides
	// LookupEnv replaces os.LookupEnv, mainly for tests.
	LookupEnv func(string) (string, bool)
}

// Overrides holds CLI flag values. Only non-nil fields are applied.
type Overrides struct {
	Host        *string
	Port        *int
	MCPPath     *string
	Transport   *string
	LLMProvider *string
	LLMModel    *string
	LogLevel    *string
	LogFormat   *string
}

// Load builds config with precedence: defaults → TOML file → .env files →
// process env → Overrides.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(opts.ConfigPath); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return nil, err
		}
	}

	dotEnvFiles := opts.DotEnvFiles
	if dotEnvFiles == nil {
		dotEnvFiles = []string{".env.local", ".env"}
	}
	lookup := newLookup(opts.LookupEnv, dotEnvFiles)
	if err := mergeEnv(&cfg, lookup); err != nil {
		return nil, err
	}

	if opts.Overrides != nil {
		applyOverrides(&cfg, opts.Overrides)
	}
	resolveAPIKey(&cfg, lookup)

	if !opts.SkipValidate {
		if err := Validate(&cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: cannot read config file %s: %w", ErrInvalid, path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("%w: malformed TOML in %s: %w", ErrInvalid, path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// newLookup resolves a key from the process env first, then from dotenv
// files in order. Empty process values fall through to dotenv.
func newLookup(env lookupFunc, dotEnvFiles []string) lookupFunc {
	if env == nil {
		env = os.LookupEnv
	}
	layers := make([]map[string]string, 0, len(dotEnvFiles))
	for _, name := range dotEnvFiles {
		values, err := godotenv.Read(name)
		if err != nil {
			continue
		}
		layers = append(layers, values)
	}
	return func(key string) (string, bool) {
		if v, ok := env(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
		for _, layer := range layers {
			if v, ok := layer[key]; ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
		return "", false
	}
}

func mergeEnv(cfg *Config, lookup lookupFunc) error {
	if v, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q is not a number", ErrInvalid, v)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup("LAWMCP_HOST"); ok {
		cfg.Server.Host = v
	}
	if v, ok := lookup("LAWMCP_MCP_PATH"); ok {
		cfg.Server.MCPPath = v
	}
	if v, ok := lookup("LAWMCP_TRANSPORT"); ok {
		cfg.Server.Transport = v
	}
	if v, ok := lookup("LAWMCP_RATE_LIMIT_RPS"); ok {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: LAWMCP_RATE_LIMIT_RPS=%q is not a number", ErrInvalid, v)
		}
		cfg.Server.RateLimitRPS = rps
	}
	if v, ok := lookup("LAWMCP_RATE_LIMIT_BURST"); ok {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: LAWMCP_RATE_LIMIT_BURST=%q is not a number", ErrInvalid, v)
		}
		cfg.Server.RateLimitBurst = burst
	}
	if v, ok := lookup("LAWMCP_TRUSTED_PROXIES"); ok {
		cfg.Server.TrustedProxies = splitList(v)
	}

	if v, ok := lookup("LAWMCP_LLM_PROVIDER"); ok {
		cfg.LLM.Provider = strings.ToLower(v)
	}
	if v, ok := lookup("LAWMCP_LLM_MODEL"); ok {
		cfg.LLM.Model = v
	}
	if v, ok := lookup("LAWMCP_LLM_BASE_URL"); ok {
		cfg.LLM.BaseURL = v
	}

	if v, ok := lookup("LAWMCP_SEARCH_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: LAWMCP_SEARCH_ENABLED=%q must be true or false", ErrInvalid, v)
		}
		cfg.Search.Enabled = enabled
	}
	if v, ok := lookup("LAWMCP_SEARCH_BASE_URL"); ok {
		cfg.Search.BaseURL = v
	}

	if v, ok := lookup("LAWMCP_LOG_LEVEL"); ok {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookup("LAWMCP_LOG_FORMAT"); ok {
		cfg.Log.Format = strings.ToLower(v)
	}
	return nil
}

// resolveAPIKey runs once the provider is final so a provider switch from
// any layer picks up the matching credential.
func resolveAPIKey(cfg *Config, lookup lookupFunc) {
	if envVar := APIKeyEnvVar(cfg.LLM.Provider); envVar != "" {
		if v, ok := lookup(envVar); ok {
			cfg.LLM.APIKey = v
		}
	}
}

func applyOverrides(cfg *Config, o *Overrides) {
	if o.Host != nil {
		cfg.Server.Host = *o.Host
	}
	if o.Port != nil {
		cfg.Server.Port = *o.Port
	}
	if o.MCPPath != nil {
		cfg.Server.MCPPath = *o.MCPPath
	}
	if o.Transport != nil {
		cfg.Server.Transport = *o.Transport
	}
	if o.LLMProvider != nil {
		cfg.LLM.Provider = strings.ToLower(*o.LLMProvider)
	}
	if o.LLMModel != nil {
		cfg.LLM.Model = *o.LLMModel
	}
	if o.LogLevel != nil {
		cfg.Log.Level = strings.ToLower(*o.LogLevel)
	}
	if o.LogFormat != nil {
		cfg.Log.Format = strings.ToLower(*o.LogFormat)
	}
}

// APIKeyEnvVar returns the environment variable holding the credential
// for provider, or "" when the provider needs none.
func APIKeyEnvVar(provider string) string {
	switch provider {
	case ProviderGroq:
		return "GROQ_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// Addr returns host:port for the HTTP listener.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Encode renders cfg as TOML. The API key is never included.
func Encode(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveFile writes cfg to path as TOML.
func SaveFile(path string, cfg Config) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is required")
	}
	raw, err := Encode(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	return os.WriteFile(path, raw, 0o644)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
