package chathub

import "chatlounge/backend/internal/models"

// Client is the interface for any type of connection (e.g., WebSocket, Telegram).
// The hub only knows clients by ID and delivers group traffic to their send
// channel; everything else is up to the client's Actor.
type Client interface {
	// GetID identifies this connection. One user may hold several.
	GetID() string
	// GetUserID returns the identity behind the connection.
	GetUserID() string

	// GetSendChannel returns the channel the hub delivers group envelopes to.
	// The hub never blocks on it and never closes it.
	GetSendChannel() chan<- Envelope

	// Emit queues an event for the remote side. Safe from any goroutine and
	// a no-op after Close.
	Emit(ev models.Event)

	// Run starts the goroutines that serve the connection.
	Run()
	// Close shuts the connection down. Safe to call more than once.
	Close()
}

// Actor holds the per-connection protocol. A client calls its methods from a
// single goroutine, so an actor needs no locking of its own.
type Actor interface {
	// Dispatch handles one inbound client frame.
	Dispatch(in models.Inbound)
	// Notify handles one envelope delivered through a group.
	Notify(env Envelope)
	// Disconnect runs once after the connection has left all groups.
	Disconnect()
}
