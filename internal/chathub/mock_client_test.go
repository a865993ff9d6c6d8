package chathub_test

import (
	"chatlounge/backend/internal/chathub"
	"chatlounge/backend/internal/models"
	"sync"
)

type MockClient struct {
	id          string
	userID      string
	RecvChannel chan chathub.Envelope

	mu     sync.Mutex
	events []models.Event
	closed bool
}

func newMockClient(id, userID string, buffer int) *MockClient {
	return &MockClient{
		id:          id,
		userID:      userID,
		RecvChannel: make(chan chathub.Envelope, buffer),
	}
}

func (c *MockClient) GetID() string     { return c.id }
func (c *MockClient) GetUserID() string { return c.userID }

func (c *MockClient) GetSendChannel() chan<- chathub.Envelope {
	return c.RecvChannel
}

func (c *MockClient) Emit(ev models.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
