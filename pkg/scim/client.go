package scim

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tendant/wso2is-populate/pkg/errors"
)

// Config binds a client to one server.
type Config struct {
	Host     string
	Username string
	Password string
}

// DefaultClassifier treats HTTP 409 as "already exists", the only signal the
// SCIM endpoints give for duplicates.
var DefaultClassifier errors.Classifier = errors.PatternClassifier{
	Statuses: map[int]errors.Outcome{http.StatusConflict: errors.OutcomeAlreadyExists},
}

// Client is a SCIM2 client for users and groups. Every call is a single
// attempt; there is no retry.
type Client struct {
	baseURL  string
	username string
	password string

	classifier errors.Classifier
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithClassifier replaces DefaultClassifier.
func WithClassifier(c errors.Classifier) Option {
	return func(cl *Client) {
		cl.classifier = c
	}
}

// New creates a SCIM2 client rooted at <host>/scim2. It fails when the host or
// credentials are missing. A nil httpClient gets a 30s timeout default.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger, opts ...Option) (*Client, error) {
	details := map[string]interface{}{}
	if strings.TrimSpace(cfg.Host) == "" {
		details["host"] = "is required"
	}
	if cfg.Username == "" {
		details["username"] = "is required"
	}
	if cfg.Password == "" {
		details["password"] = "is required"
	}
	if len(details) > 0 {
		return nil, errors.ValidationFailed(details)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.Host, "/") + "/scim2",
		username:   cfg.Username,
		password:   cfg.Password,
		classifier: DefaultClassifier,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "scim_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// --- HTTP helpers ---

// do performs one request. When the classifier recognises the failure as
// already-exists or absent it logs a warning and returns (false, nil); out is
// then untouched. Other failures are returned for the caller to log.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (bool, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, errors.InternalWrap(err, "failed to encode request body")
		}
		bodyReader = bytes.NewReader(data)
	}

	url := c.baseURL + "/" + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return false, errors.InternalWrap(err, "failed to build request")
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrCodeTransport, "%s %s", method, url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		remote := &errors.RemoteError{Method: method, URL: url, Status: resp.StatusCode, Body: string(raw)}

		switch outcome := c.classifier.Classify(remote); outcome {
		case errors.OutcomeAlreadyExists, errors.OutcomeAbsent:
			c.logger.Warn("request rejected, treated as no-op",
				"method", method, "path", path, "status", resp.StatusCode, "outcome", outcome.String(), "body", remote.Body)
			return false, nil
		}

		c.logger.Debug("request failed",
			"method", method, "path", path, "status", resp.StatusCode, "body", remote.Body)
		return false, errors.Wrapf(remote, errors.ErrCodeRemoteFault, "%s %s", method, path)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return true, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return false, errors.Wrapf(err, errors.ErrCodeUnexpectedResponse, "decode %s %s response", method, path)
	}
	return true, nil
}

// --- Generic entity operations ---

// List fetches a whole collection into out. It reports false when the server
// rejected the request as a no-op.
func (c *Client) List(ctx context.Context, entity Entity, out any) (bool, error) {
	return c.do(ctx, http.MethodGet, string(entity), nil, out)
}

// Get fetches one entity into out.
func (c *Client) Get(ctx context.Context, entity Entity, id string, out any) (bool, error) {
	return c.do(ctx, http.MethodGet, string(entity)+"/"+id, nil, out)
}

// Create posts data and decodes the created entity into out. It reports
// false, with no error, when the entity already existed.
func (c *Client) Create(ctx context.Context, entity Entity, data, out any) (bool, error) {
	return c.do(ctx, http.MethodPost, string(entity), data, out)
}

// Delete removes one entity.
func (c *Client) Delete(ctx context.Context, entity Entity, id string) error {
	_, err := c.do(ctx, http.MethodDelete, string(entity)+"/"+id, nil, nil)
	return err
}

// --- Users ---

// GetUsers returns all users, or nil when the server answered with a no-op
// status. Pagination parameters are not sent.
func (c *Client) GetUsers(ctx context.Context) (*ListResponse[User], error) {
	var list ListResponse[User]
	ok, err := c.List(ctx, EntityUsers, &list)
	if err != nil || !ok {
		return nil, err
	}
	return &list, nil
}

// GetUser returns one user by remote id.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	ok, err := c.Get(ctx, EntityUsers, id, &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

// AddUser creates a user. It returns nil, nil when the user already exists.
func (c *Client) AddUser(ctx context.Context, user User) (*User, error) {
	if len(user.Schemas) == 0 {
		user.Schemas = []string{SchemaUser}
	}
	var created User
	ok, err := c.Create(ctx, EntityUsers, user, &created)
	if err != nil || !ok {
		return nil, err
	}
	return &created, nil
}

// AddUsers creates users concurrently. Each creation is independent: a
// failure neither cancels nor skips the others, and all failures are joined
// into the returned error. Entries are nil for users that already existed or
// failed.
func (c *Client) AddUsers(ctx context.Context, users []User) ([]*User, error) {
	out := make([]*User, len(users))
	errs := make([]error, len(users))
	g := new(errgroup.Group)
	for i := range users {
		i := i
		g.Go(func() error {
			out[i], errs[i] = c.AddUser(ctx, users[i])
			return nil
		})
	}
	_ = g.Wait()
	return out, errors.Join(errs...)
}

// DeleteUsers deletes the users with the given user names. Names that do not
// exist on the server are ignored.
func (c *Client) DeleteUsers(ctx context.Context, usernames []string) error {
	list, err := c.GetUsers(ctx)
	if err != nil {
		return err
	}
	if list == nil {
		return nil
	}

	wanted := make(map[string]struct{}, len(usernames))
	for _, n := range usernames {
		wanted[n] = struct{}{}
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	for _, u := range list.Resources {
		u := u
		if _, ok := wanted[u.UserName]; !ok {
			continue
		}
		g.Go(func() error {
			if err := c.Delete(ctx, EntityUsers, u.ID); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// --- Groups ---

// GetRoles returns all groups.
func (c *Client) GetRoles(ctx context.Context) (*ListResponse[Group], error) {
	var list ListResponse[Group]
	ok, err := c.List(ctx, EntityGroups, &list)
	if err != nil || !ok {
		return nil, err
	}
	return &list, nil
}

// GetRole returns one group by remote id.
func (c *Client) GetRole(ctx context.Context, id string) (*Group, error) {
	var g Group
	ok, err := c.Get(ctx, EntityGroups, id, &g)
	if err != nil || !ok {
		return nil, err
	}
	return &g, nil
}

// AddRole creates a group. It returns nil, nil when the group already exists.
func (c *Client) AddRole(ctx context.Context, role Group) (*Group, error) {
	if len(role.Schemas) == 0 {
		role.Schemas = []string{SchemaGroup}
	}
	var created Group
	ok, err := c.Create(ctx, EntityGroups, role, &created)
	if err != nil || !ok {
		return nil, err
	}
	return &created, nil
}

// AddRoles creates groups concurrently, with the same independence as
// AddUsers.
func (c *Client) AddRoles(ctx context.Context, roles []Group) ([]*Group, error) {
	out := make([]*Group, len(roles))
	errs := make([]error, len(roles))
	g := new(errgroup.Group)
	for i := range roles {
		i := i
		g.Go(func() error {
			out[i], errs[i] = c.AddRole(ctx, roles[i])
			return nil
		})
	}
	_ = g.Wait()
	return out, errors.Join(errs...)
}
