// Package services contains the application services the Connecta CLI
// talks to. They validate input, call the API client and translate every
// outcome into a Result or a plain error, so presentation code never deals
// with transport details.
package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/connecta/internal/client/client"
	"github.com/dmitrijs2005/connecta/internal/client/models"
	"github.com/dmitrijs2005/connecta/internal/client/session"
	"github.com/dmitrijs2005/connecta/internal/logging"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate and install the issued credentials.
//   - Register: create an account, then log in with it.
//   - Logout: drop the credentials locally and in storage.
//   - Restore: reload a persisted session at start-up.
//   - Ping: check server liveness.
//   - Close: release underlying client resources.
type AuthService interface {
	Login(ctx context.Context, form models.LoginForm) Result
	Register(ctx context.Context, form models.RegisterForm) Result
	Logout(ctx context.Context) error
	Restore(ctx context.Context) error
	State() session.State
	Ping(ctx context.Context) error
	Close() error
}

type authService struct {
	api   client.Client
	store *session.Store
	log   logging.Logger
}

// NewAuthService constructs an AuthService bound to the API client and the
// session store.
func NewAuthService(api client.Client, store *session.Store, log logging.Logger) AuthService {
	return &authService{api: api, store: store, log: log.With("service", "auth")}
}

func (a *authService) Login(ctx context.Context, form models.LoginForm) Result {
	if err := validateForm(form); err != nil {
		return ResultOf(err)
	}

	creds, err := a.api.Login(ctx, form)
	if err != nil {
		a.log.Info(ctx, "login rejected", "username", form.Username, "error", err)
		return failure(loginMessage(err), err)
	}

	if err := a.store.SetCredentials(ctx, creds); err != nil {
		// the session is live even if it could not be written to disk
		a.log.Warn(ctx, "session not persisted", "error", err)
	}
	if !a.store.Snapshot().Authenticated {
		return Result{Error: "Login failed"}
	}
	a.log.Info(ctx, "logged in", "username", form.Username)
	return Result{Success: true}
}

func loginMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Fields == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Login failed"
}

// Register creates the account and logs in with the same credentials.
func (a *authService) Register(ctx context.Context, form models.RegisterForm) Result {
	if err := validateForm(form); err != nil {
		return ResultOf(err)
	}

	if err := a.api.Register(ctx, form); err != nil {
		a.log.Info(ctx, "registration rejected", "username", form.Username, "error", err)
		return failure(registerMessage(err), err)
	}
	a.log.Info(ctx, "registered", "username", form.Username)

	return a.Login(ctx, models.LoginForm{Username: form.Username, Password: form.Password})
}

// registerMessage picks the message shown for a failed registration: a
// general message first, then the username error, then the email error.
func registerMessage(err error) string {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return "Registration failed"
	}
	if apiErr.Fields == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	if msg := apiErr.FieldError("username"); msg != "" {
		return msg
	}
	if msg := apiErr.FieldError("email"); msg != "" {
		return msg
	}
	return "Registration failed"
}

func (a *authService) Logout(ctx context.Context) error {
	return a.store.ClearCredentials(ctx)
}

func (a *authService) Restore(ctx context.Context) error {
	return a.store.Restore(ctx)
}

func (a *authService) State() session.State {
	return a.store.Snapshot()
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.api.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close() error {
	return a.api.Close()
}
