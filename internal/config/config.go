package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"llmbridge/internal/models"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	defaultPort          = 8080
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Providers ProvidersConfig `yaml:"providers"`
	Agents    []AgentConfig   `yaml:"agents"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig selects log verbosity and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProvidersConfig catalogues configured upstream providers. A provider without
// an api_key is left unregistered.
type ProvidersConfig struct {
	OpenAI ProviderConfig `yaml:"openai"`
	Gemini ProviderConfig `yaml:"gemini"`
}

// ProviderConfig captures authentication and routing info for a provider.
type ProviderConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Models  []ModelConfig `yaml:"models"`
	Headers Headers       `yaml:"headers"`
}

// Enabled reports whether the provider has credentials.
func (p ProviderConfig) Enabled() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvRefs replaces ${VAR} with the variable's value. Bare $VAR is left
// alone.
func expandEnvRefs(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

func (p *ProviderConfig) expandEnv() {
	p.APIKey = expandEnvRefs(p.APIKey)
	p.BaseURL = expandEnvRefs(p.BaseURL)
	for k, v := range p.Headers {
		p.Headers[k] = expandEnvRefs(v)
	}
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// ModelConfig declares a model beyond, or overriding, the built-in catalogue.
type ModelConfig struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	StructuredOutput bool   `yaml:"structured_output"`
	BatchRequests    bool   `yaml:"batch_requests"`
}

// Descriptor converts the entry into a model descriptor. A missing display
// name is derived from the id.
func (m ModelConfig) Descriptor(providerName string) models.ModelDescriptor {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		name = DisplayName(m.ID)
	}
	return models.ModelDescriptor{
		ID:       strings.TrimSpace(m.ID),
		Name:     name,
		Provider: providerName,
		Capabilities: models.Capabilities{
			StructuredOutput: m.StructuredOutput,
			BatchRequests:    m.BatchRequests,
		},
	}
}

// Descriptors converts every configured model.
func (p ProviderConfig) Descriptors(providerName string) []models.ModelDescriptor {
	out := make([]models.ModelDescriptor, 0, len(p.Models))
	for _, m := range p.Models {
		out = append(out, m.Descriptor(providerName))
	}
	return out
}

// AgentConfig defines a named agent bound to one model.
type AgentConfig struct {
	Name       string `yaml:"name"`
	BasePrompt string `yaml:"base_prompt"`
	Model      string `yaml:"model"`
}

var titleCaser = cases.Title(language.English)

// DisplayName turns a model id such as "gpt-4o-mini" into "Gpt 4o Mini".
func DisplayName(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_' || r == '/'
	})
	return titleCaser.String(strings.Join(words, " "))
}

// Load reads YAML configuration from disk, expands ${VAR} references from the
// environment and validates the result. A .env file next to the working
// directory is loaded first when present; variables already set win.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}
	return cfg, nil
}

// Parse decodes YAML bytes, applies defaults and validates. ${VAR} references
// are expanded in provider credentials, base URLs and header values only, so
// prompts keep any literal "$".
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	cfg.Providers.OpenAI.expandEnv()
	cfg.Providers.Gemini.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a configuration from OPENAI_API_KEY / GEMINI_API_KEY and
// optional *_BASE_URL variables, for CLI use without a config file.
func FromEnv() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	cfg := Config{
		Providers: ProvidersConfig{
			OpenAI: ProviderConfig{APIKey: os.Getenv("OPENAI_API_KEY"), BaseURL: os.Getenv("OPENAI_BASE_URL")},
			Gemini: ProviderConfig{APIKey: os.Getenv("GEMINI_API_KEY"), BaseURL: os.Getenv("GEMINI_BASE_URL")},
		},
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = "info"
	}
	if strings.TrimSpace(c.Log.Format) == "" {
		c.Log.Format = "auto"
	}
	if strings.TrimSpace(c.Providers.OpenAI.BaseURL) == "" {
		c.Providers.OpenAI.BaseURL = DefaultOpenAIBaseURL
	}
	if strings.TrimSpace(c.Providers.Gemini.BaseURL) == "" {
		c.Providers.Gemini.BaseURL = DefaultGeminiBaseURL
	}
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	switch strings.ToLower(c.Log.Format) {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("log.format %q must be one of auto, console or json", c.Log.Format)
	}

	providers := map[string]ProviderConfig{
		ProviderOpenAI: c.Providers.OpenAI,
		ProviderGemini: c.Providers.Gemini,
	}

	enabled := 0
	for name, provider := range providers {
		if !provider.Enabled() {
			continue
		}
		enabled++
		if err := validateProvider(name, provider); err != nil {
			return err
		}
	}
	if enabled == 0 {
		return errors.New("at least one provider must have an api_key")
	}

	seen := make(map[string]struct{}, len(c.Agents))
	for i, agent := range c.Agents {
		name := strings.TrimSpace(agent.Name)
		if name == "" {
			return fmt.Errorf("agents[%d]: name must not be empty", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("agents[%d]: duplicate agent name %q", i, name)
		}
		seen[name] = struct{}{}
		providerName, _, ok := strings.Cut(agent.Model, "/")
		if !ok {
			return fmt.Errorf("agent %s: model %q must look like <provider>/<model>", name, agent.Model)
		}
		if _, known := providers[strings.ToLower(providerName)]; !known {
			return fmt.Errorf("agent %s: unsupported provider %q", name, providerName)
		}
	}

	return nil
}

func validateProvider(name string, provider ProviderConfig) error {
	baseURL := strings.TrimSpace(provider.BaseURL)
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return fmt.Errorf("provider %s: base_url %q must be an absolute http(s) URL", name, provider.BaseURL)
	}

	for _, model := range provider.Models {
		if strings.TrimSpace(model.ID) == "" {
			return fmt.Errorf("provider %s: model id must not be empty", name)
		}
		if name == ProviderGemini && model.BatchRequests {
			return fmt.Errorf("provider %s: model %q cannot enable batch_requests", name, model.ID)
		}
	}

	for headerKey := range provider.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("provider %s: header %q is not a valid canonical HTTP header", name, headerKey)
		}
	}

	return nil
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
