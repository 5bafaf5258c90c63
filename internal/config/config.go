package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/coordinator"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Auth       AuthConfig       `mapstructure:"auth"`
	FileFlows  FileFlowsConfig  `mapstructure:"fileflows"`
	State      StateConfig      `mapstructure:"state"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP API. An empty AllowedOrigins list
// accepts every origin.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Host           string   `mapstructure:"host"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig guards the control and refresh routes of the HTTP API. It has
// nothing to do with FileFlows credentials.
type AuthConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	JWTSecret   string `mapstructure:"jwt_secret"`
	TokenExpiry int    `mapstructure:"token_expiry"`
}

// FileFlowsConfig describes the upstream server. At most one of
// access_token and username/password may be set.
type FileFlowsConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	SSL            bool          `mapstructure:"ssl"`
	VerifySSL      bool          `mapstructure:"verify_ssl"`
	AccessToken    string        `mapstructure:"access_token"`
	TokenHeader    string        `mapstructure:"token_header"`
	TokenScheme    string        `mapstructure:"token_scheme"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	TickTimeout    time.Duration `mapstructure:"tick_timeout"`
	Concurrency    int           `mapstructure:"concurrency"`
}

// StateConfig enables the persisted snapshot when Path is set.
type StateConfig struct {
	Path string `mapstructure:"path"`
}

type WebSocketConfig struct {
	PingInterval int `mapstructure:"ping_interval"`
	PongTimeout  int `mapstructure:"pong_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type MonitoringConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// Token schemes for a static access token.
const (
	TokenSchemeHeader = "header"
	TokenSchemeBearer = "bearer"
)

// Load reads config.yaml from ./configs, the working directory or the given
// paths, then applies environment overrides. A missing file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Override specific values from env
	v.BindEnv("server.port", "PORT")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("fileflows.host", "FILEFLOWS_HOST")
	v.BindEnv("fileflows.port", "FILEFLOWS_PORT")
	v.BindEnv("fileflows.access_token", "FILEFLOWS_ACCESS_TOKEN")
	v.BindEnv("fileflows.username", "FILEFLOWS_USERNAME")
	v.BindEnv("fileflows.password", "FILEFLOWS_PASSWORD")
	v.BindEnv("state.path", "FILEFLOWS_STATE_PATH")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, "server.port must be between 1 and 65535")
	}
	if c.Server.Host == "" {
		errors = append(errors, "server.host is required")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errors = append(errors, "logging.format must be json or text")
	}

	if c.Auth.Enabled && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "your-secret-key-here") {
		errors = append(errors, "auth.jwt_secret must be set to a secure value when enabled")
	}

	errors = append(errors, c.FileFlows.validate()...)

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func (f FileFlowsConfig) validate() []string {
	var errors []string

	if strings.TrimSpace(f.Host) == "" {
		errors = append(errors, "fileflows.host is required")
	}
	if f.Port <= 0 || f.Port > 65535 {
		errors = append(errors, "fileflows.port must be between 1 and 65535")
	}
	if _, err := f.AuthMode(); err != nil {
		errors = append(errors, err.Error())
	}
	if f.RequestTimeout <= 0 {
		errors = append(errors, "fileflows.request_timeout must be greater than 0")
	}
	if f.PollInterval < time.Second {
		errors = append(errors, "fileflows.poll_interval must be at least 1s")
	}
	if f.SessionTTL < 0 {
		errors = append(errors, "fileflows.session_ttl must not be negative")
	}
	if f.Concurrency < 0 {
		errors = append(errors, "fileflows.concurrency must not be negative")
	}

	return errors
}

// AuthMode derives the FileFlows auth mode: username and password select
// the login mode, an access token selects a static token, neither means
// no auth.
func (f FileFlowsConfig) AuthMode() (fileflows.AuthMode, error) {
	hasToken := strings.TrimSpace(f.AccessToken) != ""
	hasUser := strings.TrimSpace(f.Username) != ""
	hasPassword := f.Password != ""

	switch {
	case hasToken && (hasUser || hasPassword):
		return nil, fmt.Errorf("fileflows.access_token and fileflows.username/password are mutually exclusive")
	case hasUser != hasPassword:
		return nil, fmt.Errorf("fileflows.username and fileflows.password must be set together")
	case hasUser:
		return fileflows.Login{Username: strings.TrimSpace(f.Username), Password: f.Password, TTL: f.SessionTTL}, nil
	case hasToken:
		switch strings.ToLower(f.TokenScheme) {
		case "", TokenSchemeHeader:
			return fileflows.HeaderToken{Token: strings.TrimSpace(f.AccessToken), Header: f.TokenHeader}, nil
		case TokenSchemeBearer:
			return fileflows.BearerToken{Token: strings.TrimSpace(f.AccessToken)}, nil
		default:
			return nil, fmt.Errorf("fileflows.token_scheme must be %q or %q", TokenSchemeHeader, TokenSchemeBearer)
		}
	default:
		return fileflows.NoAuth{}, nil
	}
}

// ClientConfig converts the section into the FileFlows client settings.
func (f FileFlowsConfig) ClientConfig() (fileflows.Config, error) {
	mode, err := f.AuthMode()
	if err != nil {
		return fileflows.Config{}, err
	}
	return fileflows.Config{
		Host:               f.Host,
		Port:               f.Port,
		SSL:                f.SSL,
		InsecureSkipVerify: !f.VerifySSL,
		Auth:               mode,
		Timeout:            f.RequestTimeout,
	}, nil
}

// CoordinatorOptions returns the polling settings.
func (f FileFlowsConfig) CoordinatorOptions() coordinator.Options {
	return coordinator.Options{
		PollInterval: f.PollInterval,
		FetchTimeout: f.RequestTimeout,
		TickTimeout:  f.TickTimeout,
		Concurrency:  f.Concurrency,
	}
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_expiry", 3600)

	// FileFlows defaults
	v.SetDefault("fileflows.host", "")
	v.SetDefault("fileflows.port", fileflows.DefaultPort)
	v.SetDefault("fileflows.ssl", false)
	v.SetDefault("fileflows.verify_ssl", true)
	v.SetDefault("fileflows.access_token", "")
	v.SetDefault("fileflows.token_header", fileflows.DefaultTokenHeader)
	v.SetDefault("fileflows.token_scheme", TokenSchemeHeader)
	v.SetDefault("fileflows.username", "")
	v.SetDefault("fileflows.password", "")
	v.SetDefault("fileflows.session_ttl", fileflows.DefaultSessionTTL)
	v.SetDefault("fileflows.request_timeout", fileflows.DefaultTimeout)
	v.SetDefault("fileflows.poll_interval", 30*time.Second)
	v.SetDefault("fileflows.tick_timeout", 60*time.Second)
	v.SetDefault("fileflows.concurrency", 4)

	// State defaults
	v.SetDefault("state.path", "")

	// WebSocket defaults
	v.SetDefault("websocket.ping_interval", 30)
	v.SetDefault("websocket.pong_timeout", 60)
	v.SetDefault("websocket.write_timeout", 10)

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.prefix", "fileflows_bridge")
}
