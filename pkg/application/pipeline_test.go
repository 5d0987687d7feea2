package application

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/wso2is-populate/pkg/errors"
)

// Mock implementations for testing

type MockAPI struct {
	calls []string

	DeleteFunc   func(ctx context.Context, name string) error
	RegisterFunc func(ctx context.Context, app Application) error
	CreateFunc   func(ctx context.Context, name string) error
	FetchIDFunc  func(ctx context.Context, name string) (string, error)
	UpdateFunc   func(ctx context.Context, app Configured) error

	updated *Configured
}

func (m *MockAPI) Delete(ctx context.Context, name string) error {
	m.calls = append(m.calls, "delete")
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, name)
	}
	return nil
}

func (m *MockAPI) Register(ctx context.Context, app Application) error {
	m.calls = append(m.calls, "register")
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, app)
	}
	return nil
}

func (m *MockAPI) Create(ctx context.Context, name string) error {
	m.calls = append(m.calls, "create")
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, name)
	}
	return nil
}

func (m *MockAPI) FetchID(ctx context.Context, name string) (string, error) {
	m.calls = append(m.calls, "fetch_id")
	if m.FetchIDFunc != nil {
		return m.FetchIDFunc(ctx, name)
	}
	return "777", nil
}

func (m *MockAPI) Update(ctx context.Context, app Configured) error {
	m.calls = append(m.calls, "update")
	m.updated = &app
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, app)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testApp() Application {
	return Application{Name: "portaloauth", ClientKey: "abcdefghijklmnopqrst", ClientSecret: "s3cret"}
}

func TestReconcileRunsStepsInOrder(t *testing.T) {
	api := &MockAPI{}
	r := NewDefaultReconciler(api, testLogger())

	result, err := r.Reconcile(context.Background(), testApp())
	require.NoError(t, err)
	assert.Equal(t, []string{"delete", "register", "create", "fetch_id", "update"}, api.calls)
	assert.Equal(t, PhaseConfigured, result.Phase)
	assert.Equal(t, "777", result.ID)
	require.Len(t, result.Steps, 5)

	require.NotNil(t, api.updated)
	assert.Equal(t, "777", api.updated.ID)
	assert.Equal(t, "abcdefghijklmnopqrst", api.updated.ClientKey)
	assert.Equal(t, "s3cret", api.updated.ClientSecret)
}

func TestReconcileValidatesApplication(t *testing.T) {
	api := &MockAPI{}
	r := NewDefaultReconciler(api, testLogger())

	app := testApp()
	app.ClientKey = "short"
	result, err := r.Reconcile(context.Background(), app)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
	assert.Equal(t, PhaseFailed, result.Phase)
	assert.Empty(t, api.calls)
}

func TestReconcileStopsOnFailure(t *testing.T) {
	api := &MockAPI{
		FetchIDFunc: func(ctx context.Context, name string) (string, error) {
			return "", errors.New(errors.ErrCodeUnexpectedResponse, "two ids")
		},
	}
	r := NewDefaultReconciler(api, testLogger())

	result, err := r.Reconcile(context.Background(), testApp())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnexpectedResponse))
	assert.False(t, errors.Is(err, ErrOrphanedRegistration))
	assert.Equal(t, PhaseFailed, result.Phase)
	assert.Equal(t, []string{"delete", "register", "create", "fetch_id"}, api.calls)
	assert.Contains(t, err.Error(), "step fetch_id")
}

func TestReconcileOrphanedAfterCreateFailure(t *testing.T) {
	api := &MockAPI{
		CreateFunc: func(ctx context.Context, name string) error {
			return errors.New(errors.ErrCodeRemoteFault, "boom")
		},
	}
	r := NewDefaultReconciler(api, testLogger())

	result, err := r.Reconcile(context.Background(), testApp())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOrphanedRegistration))
	assert.True(t, errors.IsCode(err, errors.ErrCodeOrphanedRegistration))
	assert.Equal(t, PhaseOrphaned, result.Phase)
	assert.Equal(t, []string{"delete", "register", "create"}, api.calls)
}

func TestReconcileOrphanedWhenAlreadyRegistered(t *testing.T) {
	api := &MockAPI{
		RegisterFunc: func(ctx context.Context, app Application) error {
			return errors.New(errors.ErrCodeAlreadyExists, "already registered")
		},
	}
	r := NewDefaultReconciler(api, testLogger())

	result, err := r.Reconcile(context.Background(), testApp())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOrphanedRegistration))
	assert.Equal(t, PhaseOrphaned, result.Phase)
	assert.Equal(t, []string{"delete", "register"}, api.calls)
}

func TestReconcileRegisterFatal(t *testing.T) {
	api := &MockAPI{
		RegisterFunc: func(ctx context.Context, app Application) error {
			return errors.New(errors.ErrCodeTransport, "connection refused")
		},
	}
	r := NewDefaultReconciler(api, testLogger())

	result, err := r.Reconcile(context.Background(), testApp())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrOrphanedRegistration))
	assert.Equal(t, PhaseFailed, result.Phase)
}

type presetIDStep struct{}

func (presetIDStep) Name() string { return "preset" }
func (presetIDStep) Order() int { return 0 }
func (presetIDStep) ShouldSkip(ctx context.Context, state *State) bool { return false }
func (presetIDStep) Execute(ctx context.Context, state *State) error {
	state.ID = "42"
	return nil
}

func TestFetchIDSkippedWhenKnown(t *testing.T) {
	api := &MockAPI{}
	registry := NewStepRegistry().
		AddStep(&UpdateStep{}).
		AddStep(&FetchIDStep{}).
		AddStep(presetIDStep{})
	r := NewReconciler(registry, api, testLogger())

	result, err := r.Reconcile(context.Background(), testApp())
	require.NoError(t, err)
	assert.Equal(t, []string{"update"}, api.calls)
	assert.Equal(t, "42", result.ID)

	require.Len(t, result.Steps, 3)
	assert.Equal(t, "preset", result.Steps[0].Name)
	assert.Equal(t, "fetch_id", result.Steps[1].Name)
	assert.True(t, result.Steps[1].Skipped)
	assert.Equal(t, "update", result.Steps[2].Name)
}

func TestUpdateStepRequiresID(t *testing.T) {
	state := &State{Desired: testApp(), API: &MockAPI{}, Logger: testLogger()}
	err := (&UpdateStep{}).Execute(context.Background(), state)
	require.Error(t, err)
}

func TestApplicationLogValueRedactsSecret(t *testing.T) {
	v := testApp().LogValue()
	assert.NotContains(t, v.String(), "s3cret")
}
