package scheduler

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

	"device-monitor-backend/internal/hikconnect"
	"device-monitor-backend/internal/model"
	"device-monitor-backend/internal/recon"
	"device-monitor-backend/internal/store"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// stubGateway lets tests control and observe the vendor fetch.
type stubGateway struct {
	mu      sync.Mutex
	fetches int
	err     error
	block   chan struct{}
	started chan struct{}
}

func (g *stubGateway) Authenticate(ctx context.Context) (hikconnect.Session, error) {
	return hikconnect.Session{}, nil
}

func (g *stubGateway) IsSessionValid() bool { return true }

func (g *stubGateway) Session() hikconnect.Session { return hikconnect.Session{} }

func (g *stubGateway) FetchDevicesBySerials(ctx context.Context, serials []string) ([]hikconnect.VendorDevice, error) {
	g.mu.Lock()
	g.fetches++
	g.mu.Unlock()
	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.block != nil {
		<-g.block
	}
	return nil, g.err
}

func (g *stubGateway) fetchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetches
}

func newScheduler(t *testing.T, s store.Store, gw recon.Gateway) *Scheduler {
	t.Helper()
	factory := func(cred *model.Credential) (recon.Gateway, error) { return gw, nil }
	svc := recon.NewService(s, factory, nil, testLogger())
	return New(svc, time.Minute, testLogger())
}

func seedStore(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveCredentials(ctx, &model.Credential{Username: "ops@example.com"}))
	require.NoError(t, s.CreateDevice(ctx, &model.Device{
		ExternalID: "ext-1", Name: "Cam 1", Serial: "S1", Status: model.StatusOnline,
	}))
}

func TestTick_NoCredentialsIsQuiet(t *testing.T) {
	gw := &stubGateway{}
	sched := newScheduler(t, store.NewMemStore(), gw)

	sched.Tick(context.Background())

	assert.Zero(t, gw.fetchCount())
}

func TestTick_SurvivesVendorFailure(t *testing.T) {
	s := store.NewMemStore()
	seedStore(t, s)
	gw := &stubGateway{err: errors.New("portal unreachable")}
	sched := newScheduler(t, s, gw)

	// A failing check must not panic or poison later ticks.
	sched.Tick(context.Background())
	sched.Tick(context.Background())

	assert.Equal(t, 2, gw.fetchCount())
}

func TestTick_SkipsWhileCheckInFlight(t *testing.T) {
	s := store.NewMemStore()
	seedStore(t, s)
	gw := &stubGateway{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	sched := newScheduler(t, s, gw)

	done := make(chan struct{})
	go func() {
		sched.Tick(context.Background())
		close(done)
	}()

	// Wait until the first tick is inside the vendor call, then fire a
	// second tick. It must return immediately without a second fetch.
	<-gw.started
	sched.Tick(context.Background())
	assert.Equal(t, 1, gw.fetchCount())

	close(gw.block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first tick did not finish")
	}

	// With the guard released a new tick runs again.
	sched.Tick(context.Background())
	assert.Equal(t, 2, gw.fetchCount())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	gw := &stubGateway{}
	sched := newScheduler(t, store.NewMemStore(), gw)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}
