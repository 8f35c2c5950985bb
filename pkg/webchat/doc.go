// Package webchat exposes the chat service over HTTP.
//
// Routes:
//   - POST /chat runs one chat turn (or returns history for a blank session id).
//   - GET /history/{session_id} returns the display history of a session.
//   - GET / is a liveness message.
//
// Router wires the handlers with CORS, request ids and access logging. Server
// runs it with graceful shutdown.
package webchat
