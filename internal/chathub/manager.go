package chathub

import (
	"chatlounge/backend/internal/metrics"
	"context"
	"hash/fnv"
	"sync"

	"github.com/sirupsen/logrus"
)

const sequenceStripes = 64

// ManagerService тримає групи з'єднань цього процесу та розсилає їм повідомлення.
// Якщо налаштовано Relay, розсилка йде через Redis, щоб її отримали всі інстанси.
type ManagerService struct {
	mu      sync.RWMutex
	groups  map[string]map[string]Client
	joined  map[string]map[string]struct{}
	relay   *Relay
	ready   chan struct{}
	readyMu sync.Once

	// seq серіалізує "зберегти, потім розіслати" в межах однієї групи.
	seq [sequenceStripes]sync.Mutex

	log *logrus.Entry
}

// NewManagerService створює хаб. relay може бути nil: тоді доставка лише локальна.
func NewManagerService(relay *Relay) *ManagerService {
	m := &ManagerService{
		groups: make(map[string]map[string]Client),
		joined: make(map[string]map[string]struct{}),
		relay:  relay,
		ready:  make(chan struct{}),
		log:    logrus.WithField("component", "chathub"),
	}
	if relay == nil {
		m.markReady()
	}
	return m
}

// Join додає клієнта до групи. Повторний виклик нічого не змінює.
func (m *ManagerService) Join(group string, c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.groups[group]
	if !ok {
		members = make(map[string]Client)
		m.groups[group] = members
	}
	members[c.GetID()] = c

	groups, ok := m.joined[c.GetID()]
	if !ok {
		groups = make(map[string]struct{})
		m.joined[c.GetID()] = groups
	}
	groups[group] = struct{}{}
}

func (m *ManagerService) Leave(group string, c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(group, c.GetID())
}

// LeaveAll прибирає клієнта з усіх груп.
func (m *ManagerService) LeaveAll(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for group := range m.joined[c.GetID()] {
		m.leaveLocked(group, c.GetID())
	}
	delete(m.joined, c.GetID())
}

func (m *ManagerService) leaveLocked(group, clientID string) {
	if members, ok := m.groups[group]; ok {
		delete(members, clientID)
		if len(members) == 0 {
			delete(m.groups, group)
		}
	}
	if groups, ok := m.joined[clientID]; ok {
		delete(groups, group)
	}
}

// Members повертає кількість локальних клієнтів у групі.
func (m *ManagerService) Members(group string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.groups[group])
}

// Groups повертає групи, в яких зараз перебуває клієнт.
func (m *ManagerService) Groups(c Client) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.joined[c.GetID()]))
	for g := range m.joined[c.GetID()] {
		out = append(out, g)
	}
	return out
}

// Broadcast доставляє конверт у групу. Помилка relay не зупиняє локальну доставку.
func (m *ManagerService) Broadcast(ctx context.Context, env Envelope) {
	if m.relay != nil {
		err := m.relay.Publish(ctx, env)
		if err == nil {
			return
		}
		m.log.WithError(err).WithField("group", env.Group).Warn("relay publish failed, delivering locally")
	}
	m.deliverLocal(env)
}

// Sequence виконує fn під замком групи, щоб повідомлення однієї групи
// зберігались і розсилались у тому самому порядку.
func (m *ManagerService) Sequence(group string, fn func() error) error {
	h := fnv.New32a()
	_, _ = h.Write([]byte(group))
	mu := &m.seq[h.Sum32()%sequenceStripes]

	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// deliverLocal надсилає конверт усім локальним клієнтам групи.
// Повільний клієнт, чий канал заповнений, відключається.
func (m *ManagerService) deliverLocal(env Envelope) {
	m.mu.RLock()
	members := make([]Client, 0, len(m.groups[env.Group]))
	for _, c := range m.groups[env.Group] {
		members = append(members, c)
	}
	m.mu.RUnlock()

	for _, c := range members {
		select {
		case c.GetSendChannel() <- env:
		default:
			metrics.DroppedDeliveries.Inc()
			m.log.WithFields(logrus.Fields{
				"client_id": c.GetID(),
				"user_id":   c.GetUserID(),
				"group":     env.Group,
			}).Warn("client send buffer full, dropping connection")
			m.LeaveAll(c)
			c.Close()
		}
	}
}

// Run слухає relay до скасування ctx. Без relay просто чекає на ctx.
func (m *ManagerService) Run(ctx context.Context) error {
	if m.relay == nil {
		<-ctx.Done()
		return nil
	}
	return m.relay.Listen(ctx, m.markReady, m.deliverLocal)
}

// Ready закривається, коли хаб готовий отримувати розсилки.
func (m *ManagerService) Ready() <-chan struct{} {
	return m.ready
}

func (m *ManagerService) markReady() {
	m.readyMu.Do(func() { close(m.ready) })
}
