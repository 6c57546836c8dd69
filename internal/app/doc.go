// Package app provides the application service layer.
//
// Orchestrates the poll lifecycle of a call session: open, answer, close,
// delete and export. Sits between the HTTP and WebSocket adapters and the
// domain ports (repository, results archive, event publisher).
package app
