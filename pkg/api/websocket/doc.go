// Package websocket provides real-time event streaming via WebSocket.
//
// Clients can connect to /api/v1/jobs/:id/ws to receive real-time
// updates about job processing.
package websocket
