// Package server is the daemon's HTTP surface. Poll endpoints read
// authoritative registry state; the events endpoint long-polls the
// progress hub; /ws pushes the same events over a websocket.
package server
