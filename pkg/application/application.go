package application

import (
	"log/slog"
	"strings"

	"github.com/tendant/wso2is-populate/pkg/config"
	"github.com/tendant/wso2is-populate/pkg/errors"
)

// Application is the desired OAuth2 service provider. Name is the unique key
// on the server.
type Application struct {
	Name         string
	ClientKey    string
	ClientSecret string
}

// Validate checks the fields every pipeline step depends on.
func (a Application) Validate() error {
	details := map[string]interface{}{}
	if strings.TrimSpace(a.Name) == "" {
		details["name"] = "is required"
	}
	if !config.ClientKeyPattern.MatchString(a.ClientKey) {
		details["client_key"] = "must match " + config.ClientKeyPattern.String()
	}
	if a.ClientSecret == "" {
		details["client_secret"] = "is required"
	}
	if len(details) > 0 {
		return errors.ValidationFailed(details)
	}
	return nil
}

// LogValue keeps the secret out of logs.
func (a Application) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", a.Name),
		slog.String("client_key", a.ClientKey),
		slog.String("client_secret", "[REDACTED]"),
	)
}

// FromConfig returns the desired application of a run.
func FromConfig(c config.Application) Application {
	return Application{Name: c.Name, ClientKey: c.ClientKey, ClientSecret: c.ClientSecret}
}

// Configured is an application as sent in updateApplication. ID is the
// server-assigned numeric id.
type Configured struct {
	Application
	ID string
}
