package importer

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tendant/wso2is-populate/pkg/errors"
	"github.com/tendant/wso2is-populate/pkg/scim"
	"github.com/tendant/wso2is-populate/pkg/users"
)

// DefaultConcurrency bounds parallel requests per entity type.
const DefaultConcurrency = 8

// Status of one imported entity.
type Status string

const (
	StatusCreated Status = "created"
	StatusExisted Status = "existed"
	StatusFailed  Status = "failed"
)

// Outcome reports what happened to one user or role.
type Outcome struct {
	Name   string
	Status Status
	Err    error
}

// ApplicationRole is the internal role granting access to the application.
func ApplicationRole(applicationName string) string {
	return "Application/" + applicationName
}

// Importer creates users and roles. Entities are created concurrently; one
// failing entity does not stop its siblings.
type Importer struct {
	users       UserStore
	roles       RoleStore
	classifier  errors.Classifier
	concurrency int
	logger      *slog.Logger
}

// Option customises an Importer.
type Option func(*Importer)

// WithConcurrency sets the number of parallel requests per entity type.
func WithConcurrency(n int) Option {
	return func(i *Importer) {
		if n > 0 {
			i.concurrency = n
		}
	}
}

// WithUserExistsClassifier replaces UserExistsClassifier.
func WithUserExistsClassifier(c errors.Classifier) Option {
	return func(i *Importer) {
		i.classifier = c
	}
}

// New creates an Importer.
func New(userStore UserStore, roleStore RoleStore, logger *slog.Logger, opts ...Option) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	i := &Importer{
		users:       userStore,
		roles:       roleStore,
		classifier:  UserExistsClassifier,
		concurrency: DefaultConcurrency,
		logger:      logger.With(slog.String("component", "importer")),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// RoleList returns the roles sent for a user: the application role first, then
// the user's own roles, without duplicates.
func RoleList(applicationName string, roles []string) []string {
	out := make([]string, 0, len(roles)+1)
	seen := make(map[string]struct{}, len(roles)+1)
	for _, r := range append([]string{ApplicationRole(applicationName)}, roles...) {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// CreateUsers creates every user with the application role added. A user that
// already exists counts as success. It waits for all users and returns the
// failures joined, with one Outcome per user in input order.
func (i *Importer) CreateUsers(ctx context.Context, list []users.User, applicationName string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(list))
	var (
		mu   sync.Mutex
		errs []error
	)

	g := new(errgroup.Group)
	g.SetLimit(i.concurrency)

	for idx := range list {
		idx := idx
		u := list[idx]
		g.Go(func() error {
			roles := RoleList(applicationName, u.Roles)
			err := i.users.AddUser(ctx, NewUser{Name: u.Name, Password: u.Password, Roles: roles})

			out := Outcome{Name: u.Name, Status: StatusCreated}
			switch {
			case err == nil:
				i.logger.Info("created user", "user", u.Name, "roles", roles)
			case i.classifier.Classify(err) == errors.OutcomeAlreadyExists:
				out.Status = StatusExisted
				i.logSwallowed("user already existed, configuration not checked", u.Name, err)
			default:
				out.Status = StatusFailed
				out.Err = errors.Wrapf(err, errors.GetCode(err), "create user %s", u.Name)
				i.logger.Error("failed to create user", "user", u.Name, "error", err)
				mu.Lock()
				errs = append(errs, out.Err)
				mu.Unlock()
			}
			outcomes[idx] = out
			return nil // siblings keep going
		})
	}
	_ = g.Wait()

	return outcomes, errors.Join(errs...)
}

// RolesFromUsers returns one group per distinct role name, in first-seen
// order, listing the users holding it as members by display name.
func RolesFromUsers(list []users.User) []scim.Group {
	index := map[string]int{}
	var groups []scim.Group
	for _, u := range list {
		for _, r := range u.Roles {
			pos, ok := index[r]
			if !ok {
				pos = len(groups)
				index[r] = pos
				groups = append(groups, scim.Group{DisplayName: r})
			}
			groups[pos].Members = append(groups[pos].Members, scim.Member{Display: u.Name})
		}
	}
	return groups
}

// CreateRoles creates each role by display name. Members without an id are
// not sent. A role that already exists counts as success.
func (i *Importer) CreateRoles(ctx context.Context, roles []scim.Group) ([]Outcome, error) {
	outcomes := make([]Outcome, len(roles))
	var (
		mu   sync.Mutex
		errs []error
	)

	g := new(errgroup.Group)
	g.SetLimit(i.concurrency)

	for idx := range roles {
		idx := idx
		role := roles[idx]
		g.Go(func() error {
			payload := scim.Group{DisplayName: role.DisplayName}
			for _, m := range role.Members {
				if m.Value != "" {
					payload.Members = append(payload.Members, m)
				}
			}

			created, err := i.roles.AddRole(ctx, payload)
			out := Outcome{Name: role.DisplayName, Status: StatusCreated}
			switch {
			case err != nil:
				out.Status = StatusFailed
				out.Err = errors.Wrapf(err, errors.GetCode(err), "create role %s", role.DisplayName)
				i.logger.Error("failed to create role", "role", role.DisplayName, "error", err)
				mu.Lock()
				errs = append(errs, out.Err)
				mu.Unlock()
			case created == nil:
				out.Status = StatusExisted
				i.logger.Info("role already existed", "role", role.DisplayName)
			default:
				i.logger.Info("created role", "role", role.DisplayName, "id", created.ID)
			}
			outcomes[idx] = out
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, errors.Join(errs...)
}

func (i *Importer) logSwallowed(msg, name string, err error) {
	attrs := []any{"user", name}
	if remote, ok := errors.AsRemote(err); ok {
		attrs = append(attrs, "status", remote.Status, "fault", remote.Text())
	}
	i.logger.Warn(msg, attrs...)
}

// Failed returns the names of the failed entities.
func Failed(outcomes []Outcome) []string {
	var names []string
	for _, o := range outcomes {
		if o.Status == StatusFailed {
			names = append(names, o.Name)
		}
	}
	return names
}
