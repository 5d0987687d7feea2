package fakeis

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"golang.org/x/crypto/bcrypt"
)

// TokenFormat selects what /oauth2/token issues.
type TokenFormat string

const (
	TokenOpaque TokenFormat = "opaque"
	TokenJWT    TokenFormat = "jwt"
)

// Call is one request received by the server.
type Call struct {
	Method string
	Path   string
	// Action is the SOAPAction without the urn: prefix, empty for REST calls.
	Action string
}

// User as stored by the fake user store. Password is only read when seeding;
// the server keeps a bcrypt hash.
type User struct {
	ID       string
	Name     string
	Password string
	Roles    []string

	hash []byte
}

// newUser hashes password with bcrypt.MinCost. A password bcrypt rejects
// (longer than 72 bytes) leaves the user unable to log in.
func newUser(name, password string, roles []string) *User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &User{ID: newID(), Name: name, Roles: roles, hash: hash}
}

func (u *User) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(u.hash, []byte(password)) == nil
}

// Group is a SCIM group.
type Group struct {
	ID          string
	DisplayName string
}

// ServiceProvider is an application created with createApplication.
type ServiceProvider struct {
	ID   int
	Name string
	// OAuthKey is the inbound oauth2 key set by updateApplication.
	OAuthKey string
	// OpenIDKey is the inbound openid key set by updateApplication.
	OpenIDKey string
}

// OAuthApp is an OAuth registration created by registerOAuthApplicationData.
type OAuthApp struct {
	Name       string
	Key        string
	Secret     string
	GrantTypes string
}

// Server emulates the parts of the Identity Server used by the populate tool,
// including its error texts.
type Server struct {
	adminUser     string
	adminPassword string
	tokenFormat   TokenFormat
	jwtAuth       *jwtauth.JWTAuth
	logger        *slog.Logger

	mu        sync.Mutex
	users     map[string]*User // by name
	groups    map[string]*Group
	providers map[string]*ServiceProvider
	oauthApps map[string]*OAuthApp // by key
	nextSPID  int
	calls     []Call
	faults    map[string]string

	router chi.Router
}

// Option customises a Server.
type Option func(*Server)

// WithAdmin sets the basic auth credentials accepted by the admin APIs.
func WithAdmin(username, password string) Option {
	return func(s *Server) {
		s.adminUser = username
		s.adminPassword = password
	}
}

// WithTokenFormat selects opaque or JWT access tokens.
func WithTokenFormat(f TokenFormat) Option {
	return func(s *Server) {
		s.tokenFormat = f
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates an empty server accepting admin/admin.
func New(opts ...Option) *Server {
	s := &Server{
		adminUser:     "admin",
		adminPassword: "admin",
		tokenFormat:   TokenOpaque,
		jwtAuth:       jwtauth.New("HS256", []byte("fakeis-signing-key"), nil),
		logger:        slog.Default(),
		users:         map[string]*User{},
		groups:        map[string]*Group{},
		providers:     map[string]*ServiceProvider{},
		oauthApps:     map[string]*OAuthApp{},
		nextSPID:      1,
		faults:        map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Route("/scim2", func(r chi.Router) {
		r.Use(s.adminAuth)
		r.Get("/Users", s.listUsers)
		r.Post("/Users", s.createUser)
		r.Get("/Users/{id}", s.getUser)
		r.Delete("/Users/{id}", s.deleteUser)
		r.Get("/Groups", s.listGroups)
		r.Post("/Groups", s.createGroup)
		r.Get("/Groups/{id}", s.getGroup)
		r.Delete("/Groups/{id}", s.deleteGroup)
	})

	r.Route("/services", func(r chi.Router) {
		r.Use(s.adminAuth)
		r.Post("/{service}", s.soap)
	})

	r.Post("/oauth2/token", s.token)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := strings.TrimPrefix(strings.Trim(r.Header.Get("SOAPAction"), `"`), "urn:")
		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Action: action})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.adminUser || pass != s.adminPassword {
			w.Header().Set("WWW-Authenticate", `Basic realm="fakeis"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FailAction makes every later call of the SOAP action fail with fault.
func (s *Server) FailAction(action, fault string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[action] = fault
}

// ClearFaults removes all injected faults.
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = map[string]string{}
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Actions returns the SOAP actions received, in order.
func (s *Server) Actions() []string {
	var actions []string
	for _, c := range s.Calls() {
		if c.Action != "" {
			actions = append(actions, c.Action)
		}
	}
	return actions
}

// User returns a stored user.
func (s *Server) User(name string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		return User{}, false
	}
	return User{ID: u.ID, Name: u.Name, Roles: append([]string(nil), u.Roles...)}, true
}

// Groups returns the group display names, sorted.
func (s *Server) Groups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.groups))
	for _, g := range s.groups {
		names = append(names, g.DisplayName)
	}
	sort.Strings(names)
	return names
}

// ServiceProvider returns the service provider called name.
func (s *Server) ServiceProvider(name string) (ServiceProvider, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.providers[name]
	if !ok {
		return ServiceProvider{}, false
	}
	return *sp, true
}

// OAuthApp returns the OAuth registration with consumer key key.
func (s *Server) OAuthApp(key string) (OAuthApp, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.oauthApps[key]
	if !ok {
		return OAuthApp{}, false
	}
	return *app, true
}

// SeedOAuthApp stores an OAuth registration without a service provider, the
// state left by a run that failed between register and create.
func (s *Server) SeedOAuthApp(app OAuthApp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := app
	s.oauthApps[app.Key] = &cp
}

// SeedUser stores a user directly.
func (s *Server) SeedUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := newUser(u.Name, u.Password, append([]string(nil), u.Roles...))
	if u.ID != "" {
		stored.ID = u.ID
	}
	s.users[u.Name] = stored
}

// VerifyToken checks that tok is a JWT access token signed by this server.
func (s *Server) VerifyToken(tok string) (string, error) {
	parsed, err := jwtauth.VerifyToken(s.jwtAuth, tok)
	if err != nil {
		return "", err
	}
	return parsed.Subject(), nil
}
