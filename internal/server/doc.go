// Package server hosts the Fiber HTTP service: the middleware chain (panic
// recovery, request ids), URL-path to filesystem-path resolution, and the
// catch-all route that hands every non-diagnostics GET/HEAD to a FileHandler.
// Diagnostics endpoints live under /-/ and are registered by the routes
// subpackage; keep exports narrow and accept explicit dependencies.
package server
