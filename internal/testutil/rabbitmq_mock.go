package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/medilabo/patient-service/internal/messaging"
)

// PublishedEvent is an event captured by MockPublisher
type PublishedEvent struct {
	RoutingKey string
	RawJSON    []byte
}

// MockPublisher records events in memory instead of sending them to RabbitMQ.
// When Err is set every Publish call fails with it after recording.
type MockPublisher struct {
	mu     sync.RWMutex
	events []PublishedEvent
	Err    error
}

var _ messaging.PublisherInterface = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish marshals the event as the real publisher would and stores it
func (m *MockPublisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{RoutingKey: routingKey, RawJSON: jsonData})
	return m.Err
}

func (m *MockPublisher) Close() error {
	return nil
}

// GetEventCountByKey returns the number of events with the specified routing key
func (m *MockPublisher) GetEventCountByKey(routingKey string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, event := range m.events {
		if event.RoutingKey == routingKey {
			count++
		}
	}
	return count
}

// AssertEventCount asserts the exact number of events with the given routing key
func (m *MockPublisher) AssertEventCount(t *testing.T, routingKey string, expected int) {
	t.Helper()

	if count := m.GetEventCountByKey(routingKey); count != expected {
		t.Errorf("Expected %d events with routing key '%s', got %d", expected, routingKey, count)
	}
}

// DecodeLastEvent unmarshals the most recent event with routingKey into target.
// It fails the test when no such event exists.
func (m *MockPublisher) DecodeLastEvent(t *testing.T, routingKey string, target interface{}) {
	t.Helper()

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].RoutingKey != routingKey {
			continue
		}
		if err := json.Unmarshal(m.events[i].RawJSON, target); err != nil {
			t.Fatalf("Failed to decode %s event: %v", routingKey, err)
		}
		return
	}
	t.Fatalf("Expected an event with routing key '%s', found none", routingKey)
}

// Reset clears all published events
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
