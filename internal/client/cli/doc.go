// Package cli provides the interactive Connecta command-line client.
//
// It wires configuration, the local session store, the API client and an
// interactive REPL. Typical flow: resume or log in, open the home feed,
// page through it with "more", like or save posts by id, publish a post.
//
// Key features:
//   - Register / Login / Logout, with the session kept across restarts
//   - Home and explore feeds, paged a screen at a time
//   - Like and save with immediate feedback, reverted when the server
//     refuses
//   - Online/offline indicator driven by a background health check
//
// When the server ends the session (refresh rejected), the transport calls
// back into the App, which drops the feeds and returns to the logged-out
// prompt.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
