package longpoll

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/longpoll-sdk-go/longpoll/rest"
)

// Config controls how the SDK talks to the feed.
type Config struct {
	BaseURL     string `yaml:"base_url"`
	FetchPath   string `yaml:"fetch_path"`
	PublishPath string `yaml:"publish_path"`

	// Transport is TransportHTTP (long polling) or TransportWebSocket.
	Transport    string `yaml:"transport"`
	WebSocketURL string `yaml:"websocket_url"` // derived from BaseURL when empty

	RetryDelay       time.Duration `yaml:"retry_delay"`
	RequestTimeout   time.Duration `yaml:"request_timeout"` // must exceed the server's hold window; required for http
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`

	// PublishRate limits publishes per second. Zero disables the limit.
	PublishRate  float64 `yaml:"publish_rate"`
	PublishBurst int     `yaml:"publish_burst"`

	IDScheme string `yaml:"id_scheme"` // IDSchemeClock or IDSchemeSnowflake
	NodeID   int64  `yaml:"node_id"`   // snowflake node, 0-1023
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "http://localhost:5000",
		FetchPath:        rest.DefaultFetchPath,
		PublishPath:      rest.DefaultPublishPath,
		Transport:        TransportHTTP,
		RetryDelay:       500 * time.Millisecond,
		RequestTimeout:   60 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		PublishBurst:     1,
		IDScheme:         IDSchemeClock,
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig unmarshals YAML bytes on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from LONGPOLL_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv("LONGPOLL_BASE_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := os.LookupEnv("LONGPOLL_TRANSPORT"); ok {
		c.Transport = v
	}
	if v, ok := os.LookupEnv("LONGPOLL_WEBSOCKET_URL"); ok {
		c.WebSocketURL = v
	}
	if v, ok := os.LookupEnv("LONGPOLL_ID_SCHEME"); ok {
		c.IDScheme = v
	}
	if v, ok := os.LookupEnv("LONGPOLL_RETRY_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return WrapError(ErrorInvalidConfig, "LONGPOLL_RETRY_DELAY", err)
		}
		c.RetryDelay = d
	}
	if v, ok := os.LookupEnv("LONGPOLL_REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return WrapError(ErrorInvalidConfig, "LONGPOLL_REQUEST_TIMEOUT", err)
		}
		c.RequestTimeout = d
	}
	if v, ok := os.LookupEnv("LONGPOLL_NODE_ID"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return WrapError(ErrorInvalidConfig, "LONGPOLL_NODE_ID", err)
		}
		c.NodeID = n
	}
	return nil
}

// Validate checks that all required fields are present and consistent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return NewError(ErrorInvalidConfig, "base_url is required")
	}
	switch c.Transport {
	case TransportHTTP, TransportWebSocket:
	default:
		return NewError(ErrorInvalidConfig, fmt.Sprintf("unknown transport %q", c.Transport))
	}
	switch c.IDScheme {
	case IDSchemeClock, IDSchemeSnowflake:
	default:
		return NewError(ErrorInvalidConfig, fmt.Sprintf("unknown id_scheme %q", c.IDScheme))
	}
	if c.RetryDelay <= 0 {
		return NewError(ErrorInvalidConfig, "retry_delay must be positive")
	}
	if c.RequestTimeout < 0 {
		return NewError(ErrorInvalidConfig, "request_timeout must not be negative")
	}
	// A stopped loop waits out its in-flight poll, so polls must end.
	if c.Transport == TransportHTTP && c.RequestTimeout == 0 {
		return NewError(ErrorInvalidConfig, "request_timeout must be positive for the http transport")
	}
	if c.PublishRate < 0 {
		return NewError(ErrorInvalidConfig, "publish_rate must not be negative")
	}
	return nil
}

// webSocketURL returns WebSocketURL, or BaseURL with a ws scheme and /ws path.
func (c *Config) webSocketURL() string {
	if c.WebSocketURL != "" {
		return c.WebSocketURL
	}
	u := strings.TrimRight(c.BaseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}
