package importer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/wso2is-populate/pkg/errors"
	"github.com/tendant/wso2is-populate/pkg/scim"
	"github.com/tendant/wso2is-populate/pkg/soap"
	"github.com/tendant/wso2is-populate/pkg/users"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockUserStore struct {
	mu      sync.Mutex
	added   map[string]NewUser
	addFunc func(user NewUser) error
}

func (m *mockUserStore) AddUser(ctx context.Context, user NewUser) error {
	m.mu.Lock()
	if m.added == nil {
		m.added = map[string]NewUser{}
	}
	m.added[user.Name] = user
	m.mu.Unlock()
	if m.addFunc != nil {
		return m.addFunc(user)
	}
	return nil
}

type mockRoleStore struct {
	mu       sync.Mutex
	existing map[string]bool
	sent     []scim.Group
	failOn   string
}

func (m *mockRoleStore) AddRole(ctx context.Context, role scim.Group) (*scim.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, role)
	if role.DisplayName == m.failOn {
		return nil, &errors.RemoteError{Status: http.StatusInternalServerError, Body: "boom"}
	}
	if m.existing[role.DisplayName] {
		return nil, nil
	}
	role.ID = "id-" + role.DisplayName
	return &role, nil
}

func remoteFault(fault string) error {
	return errors.Wrap(&errors.RemoteError{Status: http.StatusInternalServerError, Fault: fault}, errors.ErrCodeRemoteFault, "addUser failed")
}

func TestRoleList(t *testing.T) {
	assert.Equal(t, []string{"Application/portaloauth", "a", "b"}, RoleList("portaloauth", []string{"a", "b", "a"}))
	assert.Equal(t, []string{"Application/portaloauth"}, RoleList("portaloauth", nil))
	assert.Equal(t, []string{"Application/portaloauth", "x"}, RoleList("portaloauth", []string{"Application/portaloauth", "x"}))
}

func TestCreateUsersAddsApplicationRole(t *testing.T) {
	store := &mockUserStore{}
	imp := New(store, &mockRoleStore{}, testLogger())

	outcomes, err := imp.CreateUsers(context.Background(), []users.User{
		{Name: "portaladmin", Password: "p", Roles: []string{"ndc_update"}},
	}, "portaloauth")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusCreated, outcomes[0].Status)
	assert.Equal(t, []string{"Application/portaloauth", "ndc_update"}, store.added["portaladmin"].Roles)
}

func TestCreateUsersDuplicateIsSuccess(t *testing.T) {
	store := &mockUserStore{addFunc: func(user NewUser) error {
		return remoteFault("UserAlreadyExisting:Username already exists in the system. Please pick another username.")
	}}
	imp := New(store, &mockRoleStore{}, testLogger())

	outcomes, err := imp.CreateUsers(context.Background(), []users.User{{Name: "a", Password: "p"}}, "app")
	require.NoError(t, err)
	assert.Equal(t, StatusExisted, outcomes[0].Status)
}

func TestCreateUsersFailureDoesNotStopSiblings(t *testing.T) {
	store := &mockUserStore{addFunc: func(user NewUser) error {
		if user.Name == "bad" {
			return remoteFault("Invalid password")
		}
		return nil
	}}
	imp := New(store, &mockRoleStore{}, testLogger(), WithConcurrency(1))

	list := []users.User{{Name: "bad", Password: "p"}, {Name: "good1", Password: "p"}, {Name: "good2", Password: "p"}}
	outcomes, err := imp.CreateUsers(context.Background(), list, "app")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create user bad")
	assert.True(t, errors.IsCode(err, errors.ErrCodeRemoteFault))

	assert.Len(t, store.added, 3)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.Equal(t, StatusCreated, outcomes[1].Status)
	assert.Equal(t, StatusCreated, outcomes[2].Status)
	assert.Equal(t, []string{"bad"}, Failed(outcomes))
}

func TestCreateUsersBoundedConcurrency(t *testing.T) {
	var inFlight, peak int32
	store := &mockUserStore{addFunc: func(user NewUser) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	}}
	imp := New(store, &mockRoleStore{}, testLogger(), WithConcurrency(2))

	list := make([]users.User, 10)
	for i := range list {
		list[i] = users.User{Name: string(rune('a' + i)), Password: "p"}
	}
	_, err := imp.CreateUsers(context.Background(), list, "app")
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRolesFromUsers(t *testing.T) {
	roles := RolesFromUsers([]users.User{
		{Name: "u1", Roles: []string{"b", "a"}},
		{Name: "u2", Roles: []string{"a"}},
		{Name: "u3"},
	})
	require.Len(t, roles, 2)
	assert.Equal(t, "b", roles[0].DisplayName)
	assert.Equal(t, []scim.Member{{Display: "u1"}}, roles[0].Members)
	assert.Equal(t, "a", roles[1].DisplayName)
	assert.Equal(t, []scim.Member{{Display: "u1"}, {Display: "u2"}}, roles[1].Members)
}

func TestCreateRoles(t *testing.T) {
	store := &mockRoleStore{existing: map[string]bool{"old": true}, failOn: "broken"}
	imp := New(&mockUserStore{}, store, testLogger())

	outcomes, err := imp.CreateRoles(context.Background(), []scim.Group{
		{DisplayName: "new", Members: []scim.Member{{Display: "u1"}, {Display: "u2", Value: "id2"}}},
		{DisplayName: "old"},
		{DisplayName: "broken"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create role broken")

	assert.Equal(t, StatusCreated, outcomes[0].Status)
	assert.Equal(t, StatusExisted, outcomes[1].Status)
	assert.Equal(t, StatusFailed, outcomes[2].Status)

	for _, g := range store.sent {
		if g.DisplayName == "new" {
			assert.Equal(t, []scim.Member{{Display: "u2", Value: "id2"}}, g.Members)
		}
	}
}

func TestSOAPUserStoreEnvelope(t *testing.T) {
	var body, action string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		action = r.Header.Get("SOAPAction")
		assert.Equal(t, "/services/RemoteUserStoreManagerService", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	store := NewSOAPUserStore(soap.New(server.URL, "admin", "admin", server.Client(), testLogger()))
	err := store.AddUser(context.Background(), NewUser{Name: "portaladmin", Password: "p&w", Roles: []string{"Application/portaloauth", "ndc_update"}})
	require.NoError(t, err)

	assert.Equal(t, "urn:addUser", action)
	assert.Contains(t, body, "<ser:userName>portaladmin</ser:userName>")
	assert.Contains(t, body, "<ser:credential>p&amp;w</ser:credential>")
	assert.Equal(t, 2, strings.Count(body, "<ser:roleList>"))
	assert.Contains(t, body, "<ser:roleList>Application/portaloauth</ser:roleList>")
	assert.Contains(t, body, "<ser:profileName>default</ser:profileName>")
	assert.Contains(t, body, "<ser:requirePasswordChange>false</ser:requirePasswordChange>")
}

func TestSOAPUserStoreDuplicateThroughImporter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><soapenv:Body><soapenv:Fault>`+
			`<faultcode>soapenv:Server</faultcode><faultstring>UserAlreadyExisting:Username already exists in the system. Please pick another username.</faultstring>`+
			`</soapenv:Fault></soapenv:Body></soapenv:Envelope>`)
	}))
	defer server.Close()

	store := NewSOAPUserStore(soap.New(server.URL, "admin", "admin", server.Client(), testLogger()))
	imp := New(store, &mockRoleStore{}, testLogger())
	outcomes, err := imp.CreateUsers(context.Background(), []users.User{{Name: "a", Password: "p"}}, "app")
	require.NoError(t, err)
	assert.Equal(t, StatusExisted, outcomes[0].Status)
}
