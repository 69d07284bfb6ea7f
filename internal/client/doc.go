// Package client is the terminal counterpart of the browser: it calls the
// auth API, keeps the session token in a local state file and rebuilds the
// signed-in identity from it on every start.
package client
