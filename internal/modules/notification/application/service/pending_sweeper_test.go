package service

import (
	"context"
	"testing"
	"time"

	"SchoolLink/internal/modules/notification/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingSweeper_PromotesStuckInAppNotifications(t *testing.T) {
	h := newHarness(t)
	s := h.school
	ctx := context.Background()
	stuck := h.pendingNotification(t, s.TenantId, s.Teacher, s.Parents[0], s.Parents[1])

	sweeper := NewPendingSweeper(h.notificationRepo, h.tracker, h.channel, time.Hour, 10)
	stats, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Scanned, "inside grace period")

	sweeper = NewPendingSweeper(h.notificationRepo, h.tracker, h.channel, 0, 10)
	stats, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepStats{Scanned: 1, Promoted: 1}, stats)

	got, err := h.notificationRepo.GetByNotificationID(ctx, s.TenantId, stuck)
	require.NoError(t, err)
	assert.Equal(t, entity.DeliverySent, got.DeliveryStatus)

	stats, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Scanned)
}
