package populate

import (
	"context"
	"log/slog"
	"time"

	"github.com/tendant/wso2is-populate/pkg/application"
	"github.com/tendant/wso2is-populate/pkg/config"
	"github.com/tendant/wso2is-populate/pkg/errors"
	"github.com/tendant/wso2is-populate/pkg/importer"
	"github.com/tendant/wso2is-populate/pkg/scim"
	"github.com/tendant/wso2is-populate/pkg/soap"
	"github.com/tendant/wso2is-populate/pkg/token"
	"github.com/tendant/wso2is-populate/pkg/users"
)

// TokenResult is the outcome of the password-grant check.
type TokenResult struct {
	Username  string
	Kind      token.Kind
	Subject   string
	Scope     string
	ExpiresAt time.Time
}

// Result collects everything a run did.
type Result struct {
	Application *application.Result
	Roles       []importer.Outcome
	Users       []importer.Outcome

	// Members are the roles with member ids resolved from the directory.
	Members    []scim.Group
	Unresolved map[string][]string

	Token *TokenResult
}

// Runner holds the clients of one run. All of them are built from the same
// Config, each with its own http.Client.
type Runner struct {
	cfg        config.Config
	reconciler *application.Reconciler
	directory  *scim.Client
	importer   *importer.Importer
	tokens     *token.Client
	logger     *slog.Logger
}

// NewRunner builds the clients for cfg.
func NewRunner(cfg config.Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	soapClient := soap.New(cfg.Host, cfg.Credentials.Username, cfg.Credentials.Password, cfg.HTTPClient(), logger)
	directory, err := scim.New(scim.Config{
		Host:     cfg.Host,
		Username: cfg.Credentials.Username,
		Password: cfg.Credentials.Password,
	}, cfg.HTTPClient(), logger)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:        cfg,
		reconciler: application.NewDefaultReconciler(application.NewSOAPAPI(soapClient, logger), logger),
		directory:  directory,
		importer: importer.New(
			importer.NewSOAPUserStore(soapClient),
			directory,
			logger,
			importer.WithConcurrency(cfg.ImportConcurrency),
		),
		logger: logger.With(slog.String("component", "populate")),
	}
	if cfg.TokenCheck.Username != "" {
		r.tokens = token.New(cfg.Host, cfg.Application.ClientKey, cfg.Application.ClientSecret, cfg.HTTPClient(), logger)
	}
	return r, nil
}

// Run builds a Runner for cfg and runs it.
func Run(ctx context.Context, cfg config.Config, list []users.User, logger *slog.Logger) (*Result, error) {
	r, err := NewRunner(cfg, logger)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, list)
}

// Run reconciles the application, then imports roles and users. A failed
// reconciliation aborts the run. Role and user failures are collected and
// returned together once both batches finished; the Result is returned in
// every case past reconciliation.
func (r *Runner) Run(ctx context.Context, list []users.User) (*Result, error) {
	appName := r.cfg.Application.Name
	r.logger.Info("starting populate", "config", r.cfg, "users", len(list))

	result := &Result{}
	appResult, err := r.reconciler.Reconcile(ctx, application.FromConfig(r.cfg.Application))
	result.Application = appResult
	if err != nil {
		r.logger.Error("application reconciliation failed", "application", appName, "error", err)
		if errors.Is(err, application.ErrOrphanedRegistration) {
			r.logger.Error("an OAuth registration without service provider is left on the server; remove it in the management console before the next run",
				"application", appName, "client_key", r.cfg.Application.ClientKey)
		}
		return result, err
	}

	roles := importer.RolesFromUsers(list)
	roleOutcomes, roleErr := r.importer.CreateRoles(ctx, roles)
	result.Roles = roleOutcomes

	userOutcomes, userErr := r.importer.CreateUsers(ctx, list, appName)
	result.Users = userOutcomes

	// Member ids exist only once the user batch has finished.
	if members, err := r.resolveMembers(ctx, roles); err != nil {
		r.logger.Warn("could not resolve role members", "error", err)
	} else {
		result.Members = members
		result.Unresolved = scim.UnresolvedMembers(members)
		for role, names := range result.Unresolved {
			r.logger.Warn("role members not found in directory", "role", role, "users", names)
		}
	}

	if importErr := errors.Join(roleErr, userErr); importErr != nil {
		r.logger.Error("import finished with failures",
			"failed_roles", importer.Failed(roleOutcomes),
			"failed_users", importer.Failed(userOutcomes))
		return result, importErr
	}

	if r.tokens != nil {
		check, err := r.checkToken(ctx, list)
		if err != nil {
			r.logger.Error("token check failed", "username", r.cfg.TokenCheck.Username, "error", err)
			return result, err
		}
		result.Token = check
	}

	r.logger.Info("populate finished", "application", appName, "application_id", appResult.ID)
	return result, nil
}

func (r *Runner) resolveMembers(ctx context.Context, roles []scim.Group) ([]scim.Group, error) {
	listed, err := r.directory.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	var directory []scim.User
	if listed != nil {
		directory = listed.Resources
	}
	return scim.AttachMemberIDs(directory, roles)
}

// checkToken requests a token as the configured user through the reconciled
// application and inspects it.
func (r *Runner) checkToken(ctx context.Context, list []users.User) (*TokenResult, error) {
	username := r.cfg.TokenCheck.Username
	u, ok := users.Find(list, username)
	if !ok {
		return nil, errors.NotFound("token check user", username)
	}

	tok, err := r.tokens.PasswordGrant(ctx, u.Name, u.Password, r.cfg.TokenCheck.Scope)
	if err != nil {
		return nil, err
	}
	info, err := token.Inspect(tok.AccessToken)
	if err != nil {
		return nil, err
	}

	check := &TokenResult{
		Username:  u.Name,
		Kind:      info.Kind,
		Subject:   info.Subject,
		Scope:     tok.Scope,
		ExpiresAt: info.ExpiresAt,
	}
	if check.ExpiresAt.IsZero() {
		check.ExpiresAt = tok.Expiry(time.Now())
	}
	r.logger.Info("token check passed", "username", u.Name, "kind", info.Kind, "expires_at", check.ExpiresAt)
	return check, nil
}
