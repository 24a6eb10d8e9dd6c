// Package websocket streams run events to connected clients, filtered
// by run id.
package websocket
