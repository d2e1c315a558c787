// Package client is a small HTTP client for the hostkeeper daemon API,
// used by the CLI to trigger checks and read server state from a running
// daemon instead of opening the store directly.
package client
