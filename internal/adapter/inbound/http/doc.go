// Package http provides the HTTP transport adapter: the server lifecycle,
// ambient middleware (request IDs, metrics), health checking, and the demo
// endpoints served by the start command.
package http
