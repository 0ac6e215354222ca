package notification

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"device-monitor-backend/config"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// mockSender records delivered alerts.
type mockSender struct {
	mu     sync.Mutex
	sent   []Alert
	err    error
	notify chan struct{}
}

func newMockSender() *mockSender {
	return &mockSender{notify: make(chan struct{}, 16)}
}

func (m *mockSender) Send(alert Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		m.notify <- struct{}{}
		return m.err
	}
	m.sent = append(m.sent, alert)
	m.notify <- struct{}{}
	return nil
}

func (m *mockSender) delivered() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, len(m.sent))
	copy(out, m.sent)
	return out
}

func waitForDeliveries(t *testing.T, sender *mockSender, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-sender.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d of %d", i+1, n)
		}
	}
}

func TestWorkerPool_DeliversDispatchedAlerts(t *testing.T) {
	sender := newMockSender()
	pool := NewWorkerPool(2, sender, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	pool.Dispatch(Alert{Recipient: "a@example.com", Subject: "one"})
	pool.Dispatch(Alert{Recipient: "b@example.com", Subject: "two"})

	waitForDeliveries(t, sender, 2)

	delivered := sender.delivered()
	require.Len(t, delivered, 2)
	subjects := []string{delivered[0].Subject, delivered[1].Subject}
	assert.ElementsMatch(t, []string{"one", "two"}, subjects)
}

func TestWorkerPool_KeepsRunningAfterSendFailure(t *testing.T) {
	sender := newMockSender()
	sender.err = errors.New("relay refused")
	pool := NewWorkerPool(1, sender, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	pool.Dispatch(Alert{Recipient: "a@example.com", Subject: "fails"})
	waitForDeliveries(t, sender, 1)

	sender.mu.Lock()
	sender.err = nil
	sender.mu.Unlock()

	pool.Dispatch(Alert{Recipient: "b@example.com", Subject: "succeeds"})
	waitForDeliveries(t, sender, 1)

	delivered := sender.delivered()
	require.Len(t, delivered, 1)
	assert.Equal(t, "succeeds", delivered[0].Subject)
}

func TestNewWorkerPool_ClampsSize(t *testing.T) {
	pool := NewWorkerPool(0, newMockSender(), testLogger())
	assert.Equal(t, 1, pool.size)
}

func TestSMTPSender_RequiresHost(t *testing.T) {
	sender := NewSMTPSender(config.NotifierConfig{From: "alerts@example.com"})
	err := sender.Send(Alert{Recipient: "x@example.com", Subject: "s", Body: "b"})
	assert.Error(t, err)
}
