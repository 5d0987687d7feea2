package application

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/tendant/wso2is-populate/pkg/errors"
	"github.com/tendant/wso2is-populate/pkg/soap"
)

// API is the set of remote calls the reconciler makes. Each method is one
// request.
type API interface {
	// Delete removes the service provider. An absent application is not an error.
	Delete(ctx context.Context, name string) error
	// Register creates the OAuth registration carrying the consumer key and secret.
	Register(ctx context.Context, app Application) error
	// Create creates an empty service provider. A duplicate is not an error.
	Create(ctx context.Context, name string) error
	// FetchID returns the numeric id of the service provider.
	FetchID(ctx context.Context, name string) (string, error)
	// Update replaces the service provider configuration.
	Update(ctx context.Context, app Configured) error
}

// Fault texts returned by IdentityApplicationManagementService and
// OAuthAdminService. They are the only signal these services give.
var (
	DeleteClassifier errors.Classifier = errors.PatternClassifier{
		Absent: []string{"not found", "not authorized", "does not exist"},
	}
	CreateClassifier errors.Classifier = errors.PatternClassifier{
		AlreadyExists: []string{"Already an application available with the same name"},
	}
	RegisterClassifier errors.Classifier = errors.PatternClassifier{
		AlreadyExists: []string{"already registered", "already exists", "already exist in the system"},
	}
)

var numericID = regexp.MustCompile(`^[0-9]+$`)

// SOAPAPI implements API against the admin services.
type SOAPAPI struct {
	client *soap.Client
	logger *slog.Logger

	deleteClassifier   errors.Classifier
	createClassifier   errors.Classifier
	registerClassifier errors.Classifier
}

// NewSOAPAPI creates an API using the default fault classifiers.
func NewSOAPAPI(client *soap.Client, logger *slog.Logger) *SOAPAPI {
	if logger == nil {
		logger = slog.Default()
	}
	return &SOAPAPI{
		client:             client,
		logger:             logger.With(slog.String("component", "application_api")),
		deleteClassifier:   DeleteClassifier,
		createClassifier:   CreateClassifier,
		registerClassifier: RegisterClassifier,
	}
}

func (a *SOAPAPI) Delete(ctx context.Context, name string) error {
	_, err := a.client.RoundTrip(ctx, soap.ServiceApplicationManagement, "deleteApplication", deleteTemplate, Application{Name: name})
	if err == nil {
		a.logger.Info("deleted application", "name", name)
		return nil
	}
	if a.deleteClassifier.Classify(err) == errors.OutcomeAbsent {
		a.logSwallowed("application absent, nothing to delete", name, err)
		return nil
	}
	return err
}

// Register returns an ALREADY_EXISTS error when the server reports the OAuth
// application as already registered; the caller decides what that means.
func (a *SOAPAPI) Register(ctx context.Context, app Application) error {
	_, err := a.client.RoundTrip(ctx, soap.ServiceOAuthAdmin, "registerOAuthApplicationData", registerTemplate,
		registerData{Application: app, GrantTypes: GrantTypes})
	if err == nil {
		a.logger.Info("registered OAuth application", "name", app.Name, "client_key", app.ClientKey)
		return nil
	}
	if a.registerClassifier.Classify(err) == errors.OutcomeAlreadyExists {
		return errors.Wrapf(err, errors.ErrCodeAlreadyExists, "OAuth application %q already registered", app.Name)
	}
	return err
}

func (a *SOAPAPI) Create(ctx context.Context, name string) error {
	_, err := a.client.RoundTrip(ctx, soap.ServiceApplicationManagement, "createApplication", createTemplate, Application{Name: name})
	if err == nil {
		a.logger.Info("created application", "name", name)
		return nil
	}
	if a.createClassifier.Classify(err) == errors.OutcomeAlreadyExists {
		a.logSwallowed("application already existed, configuration will be overwritten", name, err)
		return nil
	}
	return err
}

// FetchID requires exactly one applicationID element with a numeric value.
func (a *SOAPAPI) FetchID(ctx context.Context, name string) (string, error) {
	resp, err := a.client.RoundTrip(ctx, soap.ServiceApplicationManagement, "getApplication", getTemplate, Application{Name: name})
	if err != nil {
		return "", err
	}
	return ParseApplicationID(resp.Body)
}

// Update always sends the client key and secret: the call is a full replace
// and an omitted secret is cleared.
func (a *SOAPAPI) Update(ctx context.Context, app Configured) error {
	if app.ID == "" || app.ClientKey == "" || app.ClientSecret == "" {
		return errors.InvalidInput("update", "application id, client key and client secret are required")
	}
	if _, err := a.client.RoundTrip(ctx, soap.ServiceApplicationManagement, "updateApplication", updateTemplate, app); err != nil {
		return err
	}
	a.logger.Info("updated application", "name", app.Name, "id", app.ID)
	return nil
}

func (a *SOAPAPI) logSwallowed(msg, name string, err error) {
	attrs := []any{"name", name}
	if remote, ok := errors.AsRemote(err); ok {
		attrs = append(attrs, "status", remote.Status, "fault", remote.Text())
	}
	a.logger.Warn(msg, attrs...)
}

// ParseApplicationID extracts the id from a getApplication response.
func ParseApplicationID(body []byte) (string, error) {
	ids, err := soap.FindElementText(body, "applicationID")
	if err != nil {
		return "", err
	}
	if len(ids) != 1 {
		return "", errors.Newf(errors.ErrCodeUnexpectedResponse,
			"expected exactly one applicationID in getApplication response, found %d", len(ids))
	}
	if !numericID.MatchString(ids[0]) {
		return "", errors.Newf(errors.ErrCodeUnexpectedResponse, "applicationID %q is not numeric", ids[0])
	}
	return ids[0], nil
}
