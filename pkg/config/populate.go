package config

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// ClientKeyPattern is the format the server accepts for OAuth consumer keys.
var ClientKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_]{15,30}$`)

const generatedSecretLength = 30

// Credentials are the administrator credentials used for every admin API call.
type Credentials struct {
	Username string `env:"AUTHENTICATION_CREDENTIALS_USERNAME" env-default:"admin"`
	Password string `env:"AUTHENTICATION_CREDENTIALS_PASSWORD" env-default:"admin"`
}

// Application is the desired state of the OAuth2 service provider.
// ClientKey and ClientSecret are generated when not supplied.
type Application struct {
	Name         string `env:"APPLICATION_NAME" env-default:"portaloauth"`
	ClientKey    string `env:"AUTH_SERVER_CLIENTKEY"`
	ClientSecret string `env:"AUTH_SERVER_CLIENTSECRET"`
}

// TokenCheck configures the password-grant token request issued at the end of a run.
// An empty Username disables the check.
type TokenCheck struct {
	Username string `env:"TOKEN_CHECK_USERNAME" env-default:"portaladmin"`
	Scope    string `env:"TOKEN_SCOPE" env-default:"openid"`
}

// Config is the complete configuration of a populate run. It is built once by
// Load and passed by value to every client constructor.
type Config struct {
	Host               string        `env:"WSO2_HOST" env-default:"https://localhost:9443"`
	Credentials        Credentials
	Application        Application
	TokenCheck         TokenCheck
	UsersFile          string        `env:"USERS_FILE" env-default:"imports/users.yaml"`
	InsecureSkipVerify bool          `env:"INSECURE_SKIP_VERIFY" env-default:"true"`
	HTTPTimeout        time.Duration `env:"HTTP_TIMEOUT" env-default:"30s"`
	ImportConcurrency  int           `env:"IMPORT_CONCURRENCY" env-default:"8"`
	LogLevel           string        `env:"LOG_LEVEL" env-default:"info"`
}

// Load reads configuration from envFile (when it exists) and the process
// environment, fills generated defaults and validates the result.
// A value in the file wins over one already set in the environment. The file's
// values are visible only while this call reads them; the process environment
// is left as it was found.
func Load(envFile string) (Config, error) {
	var fileVars map[string]string
	if envFile != "" && fileExists(envFile) {
		vars, err := godotenv.Read(envFile)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read env file %s: %w", envFile, err)
		}
		fileVars = vars
	}

	var cfg Config
	if err := withEnv(fileVars, func() error { return cleanenv.ReadEnv(&cfg) }); err != nil {
		return Config{}, fmt.Errorf("failed to read configuration: %w", err)
	}

	if err := cfg.fillGenerated(); err != nil {
		return Config{}, err
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// withEnv runs fn with vars exported, then restores every touched variable to
// its previous value or unsets it.
func withEnv(vars map[string]string, fn func() error) error {
	type saved struct {
		value string
		set   bool
	}
	previous := make(map[string]saved, len(vars))
	defer func() {
		for key, p := range previous {
			if p.set {
				os.Setenv(key, p.value)
			} else {
				os.Unsetenv(key)
			}
		}
	}()

	for key, value := range vars {
		old, set := os.LookupEnv(key)
		previous[key] = saved{value: old, set: set}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return fn()
}

func (c *Config) fillGenerated() error {
	if c.Application.ClientKey == "" {
		key, err := RandomString(DefaultRandomChars, generatedSecretLength)
		if err != nil {
			return err
		}
		c.Application.ClientKey = key
	}
	if c.Application.ClientSecret == "" {
		secret, err := RandomString(DefaultRandomChars, generatedSecretLength)
		if err != nil {
			return err
		}
		c.Application.ClientSecret = secret
	}
	return nil
}

// Validate checks the configuration before any remote call is made.
func (c Config) Validate() error {
	return Validate(
		func() ValidationErrors {
			return CollectErrors(
				RequireHTTPSURL("WSO2_HOST", c.Host),
				RequireNonEmpty("AUTHENTICATION_CREDENTIALS_USERNAME", c.Credentials.Username),
				RequireNonEmpty("AUTHENTICATION_CREDENTIALS_PASSWORD", c.Credentials.Password),
			)
		},
		func() ValidationErrors {
			return CollectErrors(
				RequireNonEmpty("APPLICATION_NAME", c.Application.Name),
				RequireMatch("AUTH_SERVER_CLIENTKEY", c.Application.ClientKey, ClientKeyPattern),
				RequireNonEmpty("AUTH_SERVER_CLIENTSECRET", c.Application.ClientSecret),
			)
		},
		func() ValidationErrors {
			return CollectErrors(
				RequireNonEmpty("USERS_FILE", c.UsersFile),
				RequirePositiveDuration("HTTP_TIMEOUT", c.HTTPTimeout),
				RequirePositive("IMPORT_CONCURRENCY", c.ImportConcurrency),
				RequireOneOf("LOG_LEVEL", strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "error"}),
				WhenSet(c.TokenCheck.Username, func() *ValidationError {
					return RequireNonEmpty("TOKEN_SCOPE", c.TokenCheck.Scope)
				}),
			)
		},
	)
}

// HTTPClient returns a new client honouring the timeout and TLS settings.
// Every remote API client gets its own instance.
func (c Config) HTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if c.InsecureSkipVerify {
		// The server ships with a self-signed certificate.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &http.Client{
		Timeout:   c.HTTPTimeout,
		Transport: transport,
	}
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogValue implements slog.LogValuer and keeps secrets out of the logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("host", c.Host),
		slog.String("admin_username", c.Credentials.Username),
		slog.String("application", c.Application.Name),
		slog.String("client_key", c.Application.ClientKey),
		slog.String("users_file", c.UsersFile),
		slog.Bool("insecure_skip_verify", c.InsecureSkipVerify),
		slog.Duration("http_timeout", c.HTTPTimeout),
		slog.Int("import_concurrency", c.ImportConcurrency),
		slog.String("token_check_username", c.TokenCheck.Username),
	)
}
