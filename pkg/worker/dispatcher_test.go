package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TANKominator5/crowdmedics-api/internal/model"
	"github.com/TANKominator5/crowdmedics-api/pkg/logger"
)

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*model.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[uuid.UUID]*model.Notification)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	clone := *n
	r.notifications[n.ID] = &clone
	return nil
}

func (r *fakeNotificationRepo) Update(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *n
	r.notifications[n.ID] = &clone
	return nil
}

func (r *fakeNotificationRepo) ListDue(_ context.Context, limit int) ([]*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []*model.Notification
	for _, n := range r.notifications {
		if len(out) == limit {
			break
		}
		due := n.Status == model.NotificationStatusPending ||
			(n.Status == model.NotificationStatusRetrying && (n.NextRetryAt == nil || !n.NextRetryAt.After(now)))
		if due {
			clone := *n
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) get(id uuid.UUID) *model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *r.notifications[id]
	return &clone
}

type fakeEmailService struct {
	mu       sync.Mutex
	failures int
	sent     []string
}

func (s *fakeEmailService) SendCustom(_ context.Context, to, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, to)
	return nil
}

func queued(t *testing.T, repo *fakeNotificationRepo) *model.Notification {
	t.Helper()
	n := &model.Notification{
		Recipient: "admin@example.com",
		Subject:   "subject",
		Content:   "content",
		Status:    model.NotificationStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), n))
	return n
}

func TestDispatchMarksSent(t *testing.T) {
	repo := newFakeNotificationRepo()
	emailSvc := &fakeEmailService{}
	d := NewDispatcher(repo, emailSvc, DispatcherConfig{}, logger.NewLogger(nil), nil)

	n := queued(t, repo)
	require.NoError(t, d.processBatch(context.Background()))

	stored := repo.get(n.ID)
	assert.Equal(t, model.NotificationStatusSent, stored.Status)
	assert.NotNil(t, stored.SentAt)
	assert.Equal(t, []string{"admin@example.com"}, emailSvc.sent)
}

func TestDispatchRetriesThenSends(t *testing.T) {
	repo := newFakeNotificationRepo()
	emailSvc := &fakeEmailService{failures: 1}
	d := NewDispatcher(repo, emailSvc, DispatcherConfig{RetryDelay: time.Millisecond}, logger.NewLogger(nil), nil)

	n := queued(t, repo)
	require.NoError(t, d.processBatch(context.Background()))

	stored := repo.get(n.ID)
	assert.Equal(t, model.NotificationStatusRetrying, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	require.NotNil(t, stored.LastError)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, d.processBatch(context.Background()))

	stored = repo.get(n.ID)
	assert.Equal(t, model.NotificationStatusSent, stored.Status)
}

func TestDispatchExhaustsRetries(t *testing.T) {
	repo := newFakeNotificationRepo()
	emailSvc := &fakeEmailService{failures: 100}
	d := NewDispatcher(repo, emailSvc, DispatcherConfig{
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, logger.NewLogger(nil), nil)

	n := queued(t, repo)
	for i := 0; i < 3; i++ {
		require.NoError(t, d.processBatch(context.Background()))
		time.Sleep(5 * time.Millisecond)
	}

	stored := repo.get(n.ID)
	assert.Equal(t, model.NotificationStatusFailed, stored.Status)
	assert.Equal(t, 2, stored.RetryCount)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	repo := newFakeNotificationRepo()
	d := NewDispatcher(repo, &fakeEmailService{}, DispatcherConfig{
		PollInterval: time.Millisecond,
	}, logger.NewLogger(nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}
