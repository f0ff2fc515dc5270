package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error
	Feed(ctx context.Context) error
	Explore(ctx context.Context) error
	More(ctx context.Context) error
	Refresh(ctx context.Context) error
	Like(ctx context.Context, id string) error
	Save(ctx context.Context, id string) error
	Show(ctx context.Context, id string) error
	User(ctx context.Context, id string) error
	Post(ctx context.Context) error
	Status(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, status, exit"
	helpLoggedIn  = "Available commands: feed, explore, more, refresh, like <id>, save <id>, show <id>, user <id>, post, whoami, status, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the Connecta CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help           - show available commands
//	  - register       - create an account (logs in on success)
//	  - login          - authenticate
//	  - status         - connectivity and session
//	  - exit | quit    - leave the program
//
//	Logged in:
//	  - feed, explore  - open a feed from the top
//	  - more           - next screen of the current feed
//	  - refresh        - reload the current feed
//	  - like <id>      - toggle like
//	  - save <id>      - toggle save
//	  - show <id>      - show a post
//	  - user <id>      - show a profile
//	  - post           - publish a post
//	  - whoami         - show your profile
//	  - logout         - log out
//
// Prompts inside commands read from the same reader, so scripted input
// works line by line.
//
// Any errors returned by command handlers are ignored here; handlers
// report to the user themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("connecta %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, arg := parts[0], ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		if needsLogin(cmd) && !a.isLoggedIn() {
			printlnFn("Please log in first (type 'login' or 'register').")
			continue
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.Whoami(ctx)

		case "feed":
			_ = a.Feed(ctx)

		case "explore":
			_ = a.Explore(ctx)

		case "more", "m":
			_ = a.More(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "like", "save", "show", "user":
			if arg == "" {
				printlnFn(fmt.Sprintf("Usage: %s <id>", cmd))
				continue
			}
			switch cmd {
			case "like":
				_ = a.Like(ctx, arg)
			case "save":
				_ = a.Save(ctx, arg)
			case "show":
				_ = a.Show(ctx, arg)
			case "user":
				_ = a.User(ctx, arg)
			}

		case "post":
			_ = a.Post(ctx)

		case "status":
			_ = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}

func needsLogin(cmd string) bool {
	switch cmd {
	case "help", "register", "login", "status", "exit", "quit":
		return false
	}
	return true
}
