package services

import (
	"testing"

	"github.com/senyabanana/freelance-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationsReadFlow(t *testing.T) {
	f := newFixture(t)
	client := f.user(models.ClientRole)
	c := f.openCompetition(client)
	for i := 0; i < 3; i++ {
		f.submit(f.user(models.FreelancerRole), c.ID)
	}

	list, err := f.notifications.ListNotifications(f.ctx, client, models.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, list.Notifications, 3)
	assert.Equal(t, 3, list.UnreadCount)

	foreign := f.user(models.ClientRole)
	n, err := f.notifications.MarkRead(f.ctx, foreign, models.MarkReadRequest{NotificationIDs: []uuid.UUID{list.Notifications[0].ID}})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.notifications.MarkRead(f.ctx, client, models.MarkReadRequest{NotificationIDs: []uuid.UUID{list.Notifications[0].ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unread, err := f.notifications.UnreadCount(f.ctx, client)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	isRead := false
	list, err = f.notifications.ListNotifications(f.ctx, client, models.NotificationFilter{IsRead: &isRead})
	require.NoError(t, err)
	assert.Len(t, list.Notifications, 2)

	n, err = f.notifications.MarkAllRead(f.ctx, client)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	unread, err = f.notifications.UnreadCount(f.ctx, client)
	require.NoError(t, err)
	assert.Zero(t, unread)

	_, err = f.notifications.MarkRead(f.ctx, client, models.MarkReadRequest{})
	requireKind(t, err, models.ErrValidation)
}

func TestNotifyAppendsOutboxEvent(t *testing.T) {
	f := newFixture(t)
	client := f.user(models.ClientRole)
	c := f.openCompetition(client)
	f.submit(f.user(models.FreelancerRole), c.ID)

	events := f.store.PendingEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "notification.PROPOSAL_RECEIVED", events[0].RoutingKey)
	assert.Contains(t, string(events[0].Payload), `"notification_type":"PROPOSAL_RECEIVED"`)
}
