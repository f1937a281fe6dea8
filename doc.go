// Package backend is the Quill blog platform server: posts, comments,
// reactions and notifications over HTTP, with live delivery, presence and
// post viewer rooms over WebSocket.
//
// Binaries live under cmd/:
//
//   - cmd/server: the API and WebSocket server
//   - cmd/migrate: schema migrations
//   - cmd/seed: development data
//   - cmd/promote-admin: grant or revoke the admin role
//   - cmd/cli: the quill command-line client
//
// Packages under internal/ hold the domain services (comments, reactions,
// notifications, posts, search), the realtime layer (websocket) and the
// ambient stack (config, logger, metrics, telemetry, middleware).
package backend
