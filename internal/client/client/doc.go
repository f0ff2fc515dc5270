// Package client contains the client-side API layer for Connecta.
//
// # Overview
//
// The package provides:
//  1. The Client interface, the backend API the rest of the application
//     depends on: authentication, feed and explore pages, posts, users and
//     like/save actions.
//  2. HTTPClient, its REST implementation over a Transport.
//  3. Transport, which attaches the bearer token, renews it once per request
//     on 401 with a single shared refresh call, and clears the session when
//     renewal is impossible.
//  4. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Every failed call returns an *APIError matching exactly one of
// ErrAuthentication, ErrValidation, ErrNetwork or ErrServer with errors.Is.
// Validation errors keep per-field messages in APIError.Fields.
//
// # Concurrency & Contexts
//
// HTTPClient and Transport are safe for concurrent use. All operations take
// a context.Context and honor cancellation; a cancelled caller never logs the
// session out.
package client
