// Package api implements the HTTP REST API and WebSocket server for acecore.
//
// This package provides:
//   - Moonraker-compatible endpoints under /server/ace used by existing
//     dashboards ({"result": ...} envelopes)
//   - Typed command endpoints under /api/v1/ace that return 202 Accepted
//     once the command is on its way to the device
//   - WebSocket hub broadcasting ace.state_changed on every cache change
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Optional JWT bearer authentication on command routes
//
// # Architecture
//
// Handlers never talk to the device directly. Commands go through the
// ace.Dispatcher, which updates the cache optimistically and sends G-code;
// stored slot edits go through ace.Persistence. Reads come from the cache
// snapshot, so a request never observes a half-applied update.
//
// # Security
//
// When security.jwt.secret is empty all routes are open, which suits a
// printer on a trusted LAN. With a secret, command routes and the WebSocket
// require an HS256 token (see IssueToken). The Moonraker endpoints stay open
// because the dashboards that use them cannot send tokens.
package api
