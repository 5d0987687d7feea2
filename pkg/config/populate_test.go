package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://localhost:9443", cfg.Host)
	assert.Equal(t, "admin", cfg.Credentials.Username)
	assert.Equal(t, "portaloauth", cfg.Application.Name)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.True(t, cfg.InsecureSkipVerify)
	assert.Equal(t, 8, cfg.ImportConcurrency)

	// generated key and secret satisfy the server's key format
	assert.Regexp(t, ClientKeyPattern, cfg.Application.ClientKey)
	assert.Len(t, cfg.Application.ClientSecret, generatedSecretLength)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("WSO2_HOST", "https://wso2is:9443/")
	t.Setenv("APPLICATION_NAME", "mfpserviceprovider")
	t.Setenv("AUTH_SERVER_CLIENTKEY", "abcdefghij_12345")
	t.Setenv("AUTH_SERVER_CLIENTSECRET", "s3cret")
	t.Setenv("IMPORT_CONCURRENCY", "2")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://wso2is:9443", cfg.Host, "trailing slash is trimmed")
	assert.Equal(t, "mfpserviceprovider", cfg.Application.Name)
	assert.Equal(t, "abcdefghij_12345", cfg.Application.ClientKey)
	assert.Equal(t, "s3cret", cfg.Application.ClientSecret)
	assert.Equal(t, 2, cfg.ImportConcurrency)
}

func TestLoadFromEnvFile(t *testing.T) {
	t.Setenv("APPLICATION_NAME", "fromenv")
	t.Setenv("AUTH_SERVER_CLIENTKEY", "fromenv_fromenv_1")

	path := filepath.Join(t.TempDir(), "test.env")
	content := "APPLICATION_NAME=fromfile\nAUTH_SERVER_CLIENTKEY=KEYKEYKEYKEYKEY_1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fromfile", cfg.Application.Name, "file wins over the environment")
	assert.Equal(t, "KEYKEYKEYKEYKEY_1", cfg.Application.ClientKey)

	assert.Equal(t, "fromenv", os.Getenv("APPLICATION_NAME"))
	assert.Equal(t, "fromenv_fromenv_1", os.Getenv("AUTH_SERVER_CLIENTKEY"))
}

func TestLoadEnvFileLeavesEnvironmentUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APPLICATION_NAME=fromfile\nTOKEN_SCOPE=openid profile\n"), 0o600))

	first, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fromfile", first.Application.Name)
	assert.Equal(t, "openid profile", first.TokenCheck.Scope)

	_, set := os.LookupEnv("APPLICATION_NAME")
	assert.False(t, set)
	_, set = os.LookupEnv("TOKEN_SCOPE")
	assert.False(t, set)

	second, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "portaloauth", second.Application.Name)
	assert.Equal(t, "openid", second.TokenCheck.Scope)
}

func TestLoadMalformedEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOT A VALID LINE\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestLoadMissingEnvFileFallsBackToEnvironment(t *testing.T) {
	t.Setenv("APPLICATION_NAME", "envonly")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "envonly", cfg.Application.Name)
}

func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		field string
	}{
		{name: "plain http host", key: "WSO2_HOST", value: "http://localhost:9443", field: "WSO2_HOST"},
		{name: "host without scheme", key: "WSO2_HOST", value: "localhost", field: "WSO2_HOST"},
		{name: "short client key", key: "AUTH_SERVER_CLIENTKEY", value: "short", field: "AUTH_SERVER_CLIENTKEY"},
		{name: "client key with dash", key: "AUTH_SERVER_CLIENTKEY", value: "abcdefghij-12345", field: "AUTH_SERVER_CLIENTKEY"},
		{name: "zero concurrency", key: "IMPORT_CONCURRENCY", value: "0", field: "IMPORT_CONCURRENCY"},
		{name: "unknown log level", key: "LOG_LEVEL", value: "verbose", field: "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			require.Error(t, err)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := CollectErrors(
		RequireNonEmpty("a", ""),
		nil,
		RequirePositive("b", 0),
	)
	require.Len(t, errs, 2)
	assert.True(t, strings.HasPrefix(errs.Error(), "configuration validation failed:"))
	assert.Nil(t, CollectErrors(nil, nil))
}

func TestLogValueRedactsSecrets(t *testing.T) {
	cfg := Config{
		Host:        "https://localhost:9443",
		Credentials: Credentials{Username: "admin", Password: "topsecret"},
		Application: Application{Name: "app", ClientKey: "key", ClientSecret: "alsosecret"},
	}

	var sb strings.Builder
	logger := slog.New(slog.NewTextHandler(&sb, nil))
	logger.Info("config", "config", cfg)

	out := sb.String()
	assert.Contains(t, out, "admin")
	assert.NotContains(t, out, "topsecret")
	assert.NotContains(t, out, "alsosecret")
}

func TestHTTPClient(t *testing.T) {
	cfg := Config{HTTPTimeout: 5 * time.Second, InsecureSkipVerify: true}
	a := cfg.HTTPClient()
	b := cfg.HTTPClient()

	assert.Equal(t, 5*time.Second, a.Timeout)
	assert.NotSame(t, a, b, "each caller gets its own client")
}

func TestRandomString(t *testing.T) {
	s, err := RandomString("ab", 64)
	require.NoError(t, err)
	assert.Len(t, s, 64)
	assert.Empty(t, strings.Trim(s, "ab"))

	_, err = RandomString("", 3)
	assert.Error(t, err)
}
