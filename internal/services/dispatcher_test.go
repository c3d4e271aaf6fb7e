package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"freelance-marketplace-backend/internal/errs"
	"freelance-marketplace-backend/internal/metrics"
	"freelance-marketplace-backend/internal/models"

	"github.com/google/uuid"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	fail     int
}

func (p *recordingPublisher) Publish(_ context.Context, channel, _ string, _ map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail > 0 {
		p.fail--
		return errors.New("redis unavailable")
	}
	p.channels = append(p.channels, channel)
	return nil
}

func newTestDispatcher(store *memStore, pub *recordingPublisher) *Dispatcher {
	d := NewDispatcher(store, pub, DispatcherConfig{BatchSize: 10, MaxAttempts: 3})
	d.backoffs = []time.Duration{0, 0}
	return d
}

func TestDispatcherDeliversAcceptedNotification(t *testing.T) {
	f := newApplicationFixture(t)
	freelancer := uuid.New()
	a := f.submit(t, freelancer)
	_, err := f.apps.SetStatus(context.Background(), a.ID, f.owner, "accepted", nil)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	d := newTestDispatcher(f.store, pub)
	for {
		n, err := d.RunOnce(context.Background())
		require.NoError(t, err)
		if n == 0 {
			break
		}
	}

	notifications := NewNotificationService(f.store)
	got, err := notifications.List(context.Background(), freelancer, false, models.Paging{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationApplicationAccepted, got[0].Type)
	assert.Contains(t, got[0].Message, "Mobile app")

	assert.Contains(t, pub.channels, "user:"+freelancer.String())
	assert.Contains(t, pub.channels, "user:"+f.owner.String())
	assert.Empty(t, f.store.pendingNotifications())
}

func TestDispatcherRedeliveryIsIdempotent(t *testing.T) {
	store := newMemStore()
	user := uuid.New()
	e := models.NewNotificationEvent(models.Notification{UserID: user, Type: models.NotificationNewComment, Message: "hi"})
	store.enqueue([]models.Event{e})

	// Simulate a crash after the notification was written but before the
	// event was marked delivered.
	created, err := store.MaterializeEvent(context.Background(), store.outbox[0].event)
	require.NoError(t, err)
	require.True(t, created)

	pub := &recordingPublisher{}
	d := newTestDispatcher(store, pub)
	n, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := store.CountUnreadNotifications(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Empty(t, pub.channels)
}

func TestDispatcherRetriesFailedEvents(t *testing.T) {
	store := newMemStore()
	store.enqueue([]models.Event{models.NewActivityEvent(models.Activity{UserID: uuid.New(), Type: models.ActivityShare})})
	store.failMaterialize = 1

	d := newTestDispatcher(store, &recordingPublisher{})

	n, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, store.outbox[0].attempts)
	assert.Equal(t, "connection reset", store.outbox[0].lastError)

	n, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, store.outbox[0].delivered)
	assert.Len(t, store.activities, 1)
}

func TestDispatcherGivesUpAfterMaxAttempts(t *testing.T) {
	store := newMemStore()
	store.enqueue([]models.Event{models.NewActivityEvent(models.Activity{UserID: uuid.New(), Type: models.ActivityLike})})
	store.failMaterialize = 10

	d := newTestDispatcher(store, &recordingPublisher{})
	for i := 0; i < 5; i++ {
		_, err := d.RunOnce(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.outbox[0].attempts)
	assert.False(t, store.outbox[0].delivered)
}

func gaugeValue(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, metrics.OutboxPending.Write(&m))
	return m.GetGauge().GetValue()
}

func TestDispatcherReportsBacklogBeyondBatch(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 5; i++ {
		store.enqueue([]models.Event{models.NewActivityEvent(models.Activity{UserID: uuid.New(), Type: models.ActivityShare})})
	}
	d := NewDispatcher(store, &recordingPublisher{}, DispatcherConfig{BatchSize: 2, MaxAttempts: 3})

	n, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3.0, gaugeValue(t))

	// Events that used up their attempts are no longer pending.
	store.outbox[4].attempts = 3
	n, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0.0, gaugeValue(t))

	pending, err := store.CountPendingEvents(context.Background(), 3)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestDispatcherPublishFailureStillDelivers(t *testing.T) {
	store := newMemStore()
	store.enqueue([]models.Event{models.NewNotificationEvent(models.Notification{UserID: uuid.New(), Message: "x"})})

	pub := &recordingPublisher{fail: 10}
	d := newTestDispatcher(store, pub)
	n, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, store.outbox[0].delivered)
}

func TestDispatcherPurge(t *testing.T) {
	store := newMemStore()
	store.enqueue([]models.Event{models.NewActivityEvent(models.Activity{UserID: uuid.New(), Type: models.ActivityLike})})
	d := newTestDispatcher(store, &recordingPublisher{})
	_, err := d.RunOnce(context.Background())
	require.NoError(t, err)

	purged, err := d.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assert.Empty(t, store.outbox)
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), []time.Duration{0, 0}, func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retryWithBackoff(context.Background(), []time.Duration{0}, func() error {
		calls++
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestNotificationServiceOwnership(t *testing.T) {
	store := newMemStore()
	user := uuid.New()
	e := models.NewNotificationEvent(models.Notification{UserID: user, Message: "hello"})
	store.enqueue([]models.Event{e})
	_, err := newTestDispatcher(store, &recordingPublisher{}).RunOnce(context.Background())
	require.NoError(t, err)

	svc := NewNotificationService(store)

	_, err = svc.MarkRead(context.Background(), e.ID, uuid.New())
	assert.True(t, errs.IsNotFound(err))

	n, err := svc.MarkRead(context.Background(), e.ID, user)
	require.NoError(t, err)
	assert.True(t, n.Read)
	assert.NotNil(t, n.ReadAt)

	count, err := svc.UnreadCount(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.True(t, errs.IsNotFound(svc.Delete(context.Background(), e.ID, uuid.New())))
	assert.NoError(t, svc.Delete(context.Background(), e.ID, user))
}

func TestActivityServiceListsNewestFirst(t *testing.T) {
	store := newMemStore()
	projects := NewProjectService(store, newMemFiles())
	user := uuid.New()
	p := createProject(t, projects, user, "p", 100)
	_, err := projects.Share(context.Background(), p.ID, user)
	require.NoError(t, err)
	_, err = newTestDispatcher(store, &recordingPublisher{}).RunOnce(context.Background())
	require.NoError(t, err)

	svc := NewActivityService(store)
	mine, err := svc.ListForUser(context.Background(), user, models.Paging{})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, models.ActivityShare, mine[0].Type)
	assert.Equal(t, models.ActivityPost, mine[1].Type)

	forProject, err := svc.ListForProject(context.Background(), p.ID, models.Paging{})
	require.NoError(t, err)
	assert.Len(t, forProject, 2)
}
