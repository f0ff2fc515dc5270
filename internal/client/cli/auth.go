package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/dmitrijs2005/connecta/internal/client/models"
	"github.com/dmitrijs2005/connecta/internal/client/services"
	"github.com/dmitrijs2005/connecta/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errNotLoggedIn = errors.New("not logged in")

// Register prompts for the sign-up form and creates an account. A new
// account is logged in right away.
func (a *App) Register(ctx context.Context) error {
	var form models.RegisterForm
	var err error

	if form.Email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
		return err
	}
	if form.FirstName, err = getSimpleText(a.reader, "Enter first name", a.out); err != nil {
		return err
	}
	if form.Username, err = getSimpleText(a.reader, "Enter username", a.out); err != nil {
		return err
	}
	if form.Password, err = readSecret(a.out, "Enter password: "); err != nil {
		return err
	}
	if form.Password2, err = readSecret(a.out, "Repeat password: "); err != nil {
		return err
	}

	res := a.authService.Register(ctx, form)
	if !res.Success {
		a.printResult(res)
		return errors.New(res.Error)
	}

	a.startSession(form.Username)
	fmt.Fprintf(a.out, "Welcome to Connecta, %s!\n", form.Username)
	return nil
}

// Login prompts for credentials and opens a session.
func (a *App) Login(ctx context.Context) error {
	var form models.LoginForm
	var err error

	if form.Username, err = getSimpleText(a.reader, "Enter username", a.out); err != nil {
		return err
	}
	if form.Password, err = readSecret(a.out, "Enter password: "); err != nil {
		return err
	}

	res := a.authService.Login(ctx, form)
	if !res.Success {
		a.printResult(res)
		return errors.New(res.Error)
	}

	a.startSession(form.Username)
	fmt.Fprintf(a.out, "Welcome back, %s!\n", form.Username)
	return nil
}

// readSecret reads a password and wipes the terminal buffer.
func readSecret(w io.Writer, prompt string) (string, error) {
	pw, err := getPassword(w, prompt)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// Logout forgets the stored session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		fmt.Fprintln(a.out, "Logout failed:", err)
		return err
	}
	a.endSession()
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// Whoami prints the profile of the logged-in user.
func (a *App) Whoami(ctx context.Context) error {
	st := a.authService.State()
	ws := a.workspace()
	if !st.Authenticated || st.Identity == nil || ws == nil {
		fmt.Fprintln(a.out, "Not logged in.")
		return errNotLoggedIn
	}

	u, err := ws.posts.User(ctx, st.Identity.ID)
	if err != nil {
		fmt.Fprintf(a.out, "User #%d (profile unavailable: %s)\n", st.Identity.ID, services.ResultOf(err).Error)
		return err
	}

	a.mu.Lock()
	if a.userName == "" {
		a.userName = u.Username
	}
	a.mu.Unlock()

	fmt.Fprintln(a.out, renderUser(*u))
	return nil
}

// printResult reports a failed Result, field messages included.
func (a *App) printResult(res services.Result) {
	fmt.Fprintln(a.out, "Error:", res.Error)
	if len(res.Fields) < 2 {
		return
	}
	names := make([]string, 0, len(res.Fields))
	for name := range res.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, msg := range res.Fields[name] {
			fmt.Fprintf(a.out, "  %s: %s\n", name, msg)
		}
	}
}
