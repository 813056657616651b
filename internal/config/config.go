package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	DB          DBConfig         `mapstructure:"db"`
	Extraction  ExtractionConfig `mapstructure:"extraction"`
	Render      RenderConfig     `mapstructure:"render"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Lock        LockConfig       `mapstructure:"lock"`
	Auth        AuthConfig       `mapstructure:"auth"`
	Log         LogConfig        `mapstructure:"log"`
	Telemetry   TelemetryConfig  `mapstructure:"telemetry"`
	TLS         TLSConfig        `mapstructure:"tls"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	Migrate         bool          `mapstructure:"migrate"`
}

type DBConfig struct {
	// Driver is "postgres" or "memory".
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the libpq style connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type ExtractionConfig struct {
	// Mode is "http" for the remote extraction service or "mock".
	Mode      string        `mapstructure:"mode"`
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MockDelay time.Duration `mapstructure:"mock_delay"`
	// OAuth enables the client credentials grant for outbound calls when
	// TokenURL is set.
	OAuth OAuthClientConfig `mapstructure:"oauth"`
}

type OAuthClientConfig struct {
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

type RenderConfig struct {
	// Format is "pdf", "docx" or "html".
	Format        string        `mapstructure:"format"`
	ChromeTimeout time.Duration `mapstructure:"chrome_timeout"`
	PathPrefix    string        `mapstructure:"path_prefix"`
}

type StorageConfig struct {
	// Driver is "local" or "minio".
	Driver   string      `mapstructure:"driver"`
	LocalDir string      `mapstructure:"local_dir"`
	Minio    MinioConfig `mapstructure:"minio"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type LockConfig struct {
	// Driver is "local" or "redis".
	Driver   string        `mapstructure:"driver"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	// Mode is "dev" (identity from headers) or "oidc" (bearer tokens).
	Mode      string `mapstructure:"mode"`
	Issuer    string `mapstructure:"issuer"`
	ClientID  string `mapstructure:"client_id"`
	RoleClaim string `mapstructure:"role_claim"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TLSConfig enables HTTPS. A missing certificate is generated as a
// self-signed one for Hostnames.
type TLSConfig struct {
	Enable    bool     `mapstructure:"enable"`
	CertFile  string   `mapstructure:"cert_file"`
	KeyFile   string   `mapstructure:"key_file"`
	Hostnames []string `mapstructure:"hostnames"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
}

func setDefaults() {
	viper.SetDefault("environment", "dev")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 2*time.Minute)
	viper.SetDefault("server.shutdown_timeout", 30*time.Second)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.migrate", true)

	viper.SetDefault("db.driver", "postgres")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.user", "rfdb")
	viper.SetDefault("db.password", "")
	viper.SetDefault("db.name", "rfdb")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("extraction.mode", "mock")
	viper.SetDefault("extraction.url", "")
	viper.SetDefault("extraction.timeout", 90*time.Second)
	viper.SetDefault("extraction.mock_delay", 2*time.Second)
	viper.SetDefault("extraction.oauth.token_url", "")
	viper.SetDefault("extraction.oauth.client_id", "")
	viper.SetDefault("extraction.oauth.client_secret", "")
	viper.SetDefault("extraction.oauth.scopes", []string{})

	viper.SetDefault("render.format", "pdf")
	viper.SetDefault("render.chrome_timeout", 30*time.Second)
	viper.SetDefault("render.path_prefix", "generated/documents")

	viper.SetDefault("storage.driver", "local")
	viper.SetDefault("storage.local_dir", "./data")
	viper.SetDefault("storage.minio.endpoint", "")
	viper.SetDefault("storage.minio.access_key", "")
	viper.SetDefault("storage.minio.secret_key", "")
	viper.SetDefault("storage.minio.bucket", "rfdb-documents")
	viper.SetDefault("storage.minio.use_ssl", false)

	viper.SetDefault("lock.driver", "local")
	viper.SetDefault("lock.redis_url", "")
	viper.SetDefault("lock.ttl", 5*time.Minute)

	viper.SetDefault("auth.mode", "dev")
	viper.SetDefault("auth.issuer", "")
	viper.SetDefault("auth.client_id", "")
	viper.SetDefault("auth.role_claim", "role")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	viper.SetDefault("telemetry.service_name", "rfdb")

	viper.SetDefault("tls.enable", false)
	viper.SetDefault("tls.cert_file", "")
	viper.SetDefault("tls.key_file", "")
	viper.SetDefault("tls.hostnames", []string{"localhost"})
}

// LoadConfig loads the configuration from config.yaml, an optional .env file
// and the environment. Environment variables use the RFDB_ prefix with dots
// replaced by underscores, e.g. RFDB_DB_HOST.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	setDefaults()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("RFDB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	config.Auth.Issuer = normalizeIssuer(config.Auth.Issuer)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// normalizeIssuer strips whitespace and a trailing slash so the value can be
// pasted straight from the identity provider console.
func normalizeIssuer(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.DB),
		validation.Field(&c.Extraction),
		validation.Field(&c.Render),
		validation.Field(&c.Storage),
		validation.Field(&c.Lock),
		validation.Field(&c.Auth),
		validation.Field(&c.Log),
		validation.Field(&c.TLS),
	)
}

func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
	)
}

func (c DBConfig) Validate() error {
	postgres := c.Driver == "postgres"
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In("postgres", "memory")),
		validation.Field(&c.Host, validation.When(postgres, validation.Required)),
		validation.Field(&c.Port, validation.When(postgres, validation.Required, validation.Min(1), validation.Max(65535))),
		validation.Field(&c.Name, validation.When(postgres, validation.Required)),
	)
}

func (c ExtractionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Mode, validation.Required, validation.In("http", "mock")),
		validation.Field(&c.URL, validation.When(c.Mode == "http", validation.Required)),
		validation.Field(&c.Timeout, validation.Required),
		validation.Field(&c.OAuth),
	)
}

func (c OAuthClientConfig) Validate() error {
	enabled := c.TokenURL != ""
	return validation.ValidateStruct(&c,
		validation.Field(&c.ClientID, validation.When(enabled, validation.Required)),
		validation.Field(&c.ClientSecret, validation.When(enabled, validation.Required)),
	)
}

func (c RenderConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Format, validation.Required, validation.In("pdf", "docx", "html")),
		validation.Field(&c.ChromeTimeout, validation.When(c.Format == "pdf", validation.Required)),
	)
}

func (c StorageConfig) Validate() error {
	minio := c.Driver == "minio"
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In("local", "minio")),
		validation.Field(&c.LocalDir, validation.When(c.Driver == "local", validation.Required)),
		validation.Field(&c.Minio, validation.When(minio, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Minio,
				validation.Field(&c.Minio.Endpoint, validation.Required),
				validation.Field(&c.Minio.Bucket, validation.Required),
			)
		}))),
	)
}

func (c LockConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In("local", "redis")),
		validation.Field(&c.RedisURL, validation.When(c.Driver == "redis", validation.Required)),
		validation.Field(&c.TTL, validation.Required),
	)
}

func (c AuthConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Mode, validation.Required, validation.In("dev", "oidc")),
		validation.Field(&c.Issuer, validation.When(c.Mode == "oidc", validation.Required)),
	)
}

func (c TLSConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.CertFile, validation.When(c.Enable, validation.Required)),
		validation.Field(&c.KeyFile, validation.When(c.Enable, validation.Required)),
	)
}

func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Format, validation.In("json", "text")),
	)
}
