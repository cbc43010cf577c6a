package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIKeyPath = "/run/secrets/api_keys/openrouter"
	APIKeyPathEnvVar  = "OPENROUTER_API_KEY_FILE"
	EnvPathEnvVar     = "CTRL_AI_ENV"

	ClipboardBackendNative = "native"
	ClipboardBackendSystem = "system"

	InputBackendAuto    = "auto"
	InputBackendRobotgo = "robotgo"
	InputBackendYdotool = "ydotool"
)

// Modes in hotkey registration order.
var Modes = []string{"commander", "refactor", "redactor", "explain"}

var defaultHotkeys = map[string]string{
	"commander": "Ctrl+Space",
	"refactor":  "Ctrl+Shift+H",
	"redactor":  "Ctrl+Shift+D",
	"explain":   "Ctrl+Shift+E",
}

var defaultProviderOrder = []string{"groq", "openrouter", "openai", "anthropic", "gemini"}

type LoadOptions struct {
	APIKeyPathOverride string
}

// Credentials are read once at startup. An empty field means the provider is unavailable.
type Credentials struct {
	Groq       string
	OpenRouter string
	OpenAI     string
	Anthropic  string
	Gemini     string
}

// Key returns the credential for a provider name, or "" when unknown.
func (c Credentials) Key(provider string) string {
	switch provider {
	case "groq":
		return c.Groq
	case "openrouter":
		return c.OpenRouter
	case "openai":
		return c.OpenAI
	case "anthropic":
		return c.Anthropic
	case "gemini":
		return c.Gemini
	default:
		return ""
	}
}

type Config struct {
	Credentials           Credentials
	APIKeyPath            string
	Model                 string
	Providers             []string
	ProviderOrder         []string
	ProviderTimeoutSec    int
	MockLatencyMs         int
	CaptureTimeoutMs      int
	PasteSettleMs         int
	MaxConcurrentTriggers int
	ClipboardBackend      string
	InputBackend          string
	EnableFileLogging     bool
	Hotkeys               map[string]string
	ReviewPolicies        map[string]string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use CTRL_AI_ENV env var as a path to a config file
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)

	cfg := &Config{
		Credentials: Credentials{
			Groq:       strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
			OpenRouter: resolveOpenRouterKey(apiKeyPath),
			OpenAI:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			Anthropic:  strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
			Gemini:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		},
		APIKeyPath:            apiKeyPath,
		Model:                 os.Getenv("MODEL"),
		Providers:             splitList(os.Getenv("PROVIDERS")),
		ProviderOrder:         resolveProviderOrder(os.Getenv("PROVIDER_ORDER")),
		ProviderTimeoutSec:    positiveInt("PROVIDER_TIMEOUT_SEC", 30),
		MockLatencyMs:         nonNegativeInt("MOCK_LATENCY_MS", 1000),
		CaptureTimeoutMs:      positiveInt("CAPTURE_TIMEOUT_MS", 500),
		PasteSettleMs:         nonNegativeInt("PASTE_SETTLE_MS", 100),
		MaxConcurrentTriggers: positiveInt("MAX_CONCURRENT_TRIGGERS", 4),
		ClipboardBackend:      resolveChoice(os.Getenv("CLIPBOARD_BACKEND"), ClipboardBackendNative, ClipboardBackendNative, ClipboardBackendSystem),
		InputBackend:          resolveChoice(os.Getenv("INPUT_BACKEND"), InputBackendAuto, InputBackendAuto, InputBackendRobotgo, InputBackendYdotool),
		EnableFileLogging:     strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		Hotkeys:               make(map[string]string, len(Modes)),
		ReviewPolicies:        make(map[string]string),
	}

	for _, mode := range Modes {
		suffix := strings.ToUpper(mode)
		cfg.Hotkeys[mode] = getEnvWithDefault("HOTKEY_"+suffix, defaultHotkeys[mode])
		if policy := strings.ToLower(strings.TrimSpace(os.Getenv("REVIEW_POLICY_" + suffix))); policy != "" {
			cfg.ReviewPolicies[mode] = policy
		}
	}

	return cfg, nil
}

// HasCredentials reports whether any live provider can be probed.
func (c *Config) HasCredentials() bool {
	for _, name := range defaultProviderOrder {
		if c.Credentials.Key(name) != "" {
			return true
		}
	}
	return false
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := DefaultAPIKeyPath

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

func resolveOpenRouterKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
}

func resolveProviderOrder(value string) []string {
	order := splitList(strings.ToLower(value))
	if len(order) == 0 {
		return append([]string(nil), defaultProviderOrder...)
	}
	return order
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func resolveChoice(value, fallback string, allowed ...string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if value == a {
			return a
		}
	}
	return fallback
}

func positiveInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func nonNegativeInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
