package application

import (
	"context"
	"fmt"

	"github.com/tendant/wso2is-populate/pkg/errors"
)

// DefaultSteps returns the fixed pipeline. The application is deleted first
// because a second update of the same service provider clears its consumer
// secret. Register must precede update, otherwise the consumer key and secret
// cannot be chosen.
func DefaultSteps() []Step {
	return []Step{
		&DeleteStep{},
		&RegisterStep{},
		&CreateStep{},
		&FetchIDStep{},
		&UpdateStep{},
	}
}

// DeleteStep removes any previous service provider with the same name.
type DeleteStep struct{}

func (s *DeleteStep) Name() string { return "delete" }
func (s *DeleteStep) Order() int { return OrderDelete }

func (s *DeleteStep) ShouldSkip(ctx context.Context, state *State) bool { return false }

func (s *DeleteStep) Execute(ctx context.Context, state *State) error {
	if err := state.API.Delete(ctx, state.Desired.Name); err != nil {
		return err
	}
	state.Phase = PhaseDeleted
	return nil
}

// RegisterStep registers the OAuth application with the desired key and
// secret. A registration left behind by an earlier run cannot be replaced and
// leaves the server orphaned.
type RegisterStep struct{}

func (s *RegisterStep) Name() string { return "register" }
func (s *RegisterStep) Order() int { return OrderRegister }

func (s *RegisterStep) ShouldSkip(ctx context.Context, state *State) bool { return false }

func (s *RegisterStep) Execute(ctx context.Context, state *State) error {
	err := state.API.Register(ctx, state.Desired)
	if err == nil {
		state.Registered = true
		state.Phase = PhaseRegistered
		return nil
	}
	if errors.IsCode(err, errors.ErrCodeAlreadyExists) {
		return fmt.Errorf("%w: %w", ErrOrphanedRegistration, err)
	}
	return err
}

// CreateStep creates the service provider shell. A failure after a
// successful register is terminal.
type CreateStep struct{}

func (s *CreateStep) Name() string { return "create" }
func (s *CreateStep) Order() int { return OrderCreate }

func (s *CreateStep) ShouldSkip(ctx context.Context, state *State) bool { return false }

func (s *CreateStep) Execute(ctx context.Context, state *State) error {
	if err := state.API.Create(ctx, state.Desired.Name); err != nil {
		if state.Registered {
			return fmt.Errorf("%w: %w", ErrOrphanedRegistration, err)
		}
		return err
	}
	state.Phase = PhaseCreated
	return nil
}

// FetchIDStep looks up the numeric id needed by update.
type FetchIDStep struct{}

func (s *FetchIDStep) Name() string { return "fetch_id" }
func (s *FetchIDStep) Order() int { return OrderFetchID }

// ShouldSkip when an id is already known.
func (s *FetchIDStep) ShouldSkip(ctx context.Context, state *State) bool { return state.ID != "" }

func (s *FetchIDStep) Execute(ctx context.Context, state *State) error {
	id, err := state.API.FetchID(ctx, state.Desired.Name)
	if err != nil {
		return err
	}
	state.ID = id
	state.Phase = PhaseIdentified
	state.Logger.Info("resolved application id", "application", state.Desired.Name, "id", id)
	return nil
}

// UpdateStep sets the openid and oauth2 inbound configuration.
type UpdateStep struct{}

func (s *UpdateStep) Name() string { return "update" }
func (s *UpdateStep) Order() int { return OrderUpdate }

func (s *UpdateStep) ShouldSkip(ctx context.Context, state *State) bool { return false }

func (s *UpdateStep) Execute(ctx context.Context, state *State) error {
	if state.ID == "" {
		return errors.Internal("update reached without an application id")
	}
	if err := state.API.Update(ctx, Configured{Application: state.Desired, ID: state.ID}); err != nil {
		return err
	}
	state.Phase = PhaseConfigured
	return nil
}
