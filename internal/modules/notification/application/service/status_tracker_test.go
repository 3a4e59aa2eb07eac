package service

import (
	"context"
	"testing"
	"time"

	"SchoolLink/internal/modules/notification/application/dto/request"
	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/pkg/util"
	"SchoolLink/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pendingNotification 直接写一条 pending 通知，绕过工厂的提交后步骤
func (h *harness) pendingNotification(t *testing.T, tenantID, sender string, recipients ...string) string {
	t.Helper()
	ctx := context.Background()
	id := util.GenerateUUID()
	now := time.Now()
	require.NoError(t, h.notificationRepo.Create(ctx, &entity.Notification{
		NotificationId: id, TenantId: tenantID, Type: entity.TypeAnnouncement, Message: "hello",
		SenderId: sender, DeliveryMode: entity.ModeInApp, DeliveryStatus: entity.DeliveryPending, CreatedAt: now,
	}))
	rows := make([]entity.NotificationRecipient, 0, len(recipients))
	for _, r := range recipients {
		rows = append(rows, entity.NotificationRecipient{
			NotificationId: id, TenantId: tenantID, RecipientId: r, RecipientRole: entity.RoleParent,
			DeliveryStatus: entity.DeliveryPending, CreatedAt: now,
		})
	}
	require.NoError(t, h.recipientRepo.CreateBatch(ctx, rows))
	return id
}

func TestStatusTracker_PromotesOnce(t *testing.T) {
	h := newHarness(t)
	s := h.school
	ctx := context.Background()
	id := h.pendingNotification(t, s.TenantId, s.Teacher, s.Parents[0], s.Parents[1])

	n, err := h.tracker.MarkSent(ctx, s.TenantId, id, s.Parents[0])
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	got, err := h.notificationRepo.GetByNotificationID(ctx, s.TenantId, id)
	require.NoError(t, err)
	assert.Equal(t, entity.DeliveryPending, got.DeliveryStatus)

	n, err = h.tracker.MarkSent(ctx, s.TenantId, id, s.Parents[1])
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	got, err = h.notificationRepo.GetByNotificationID(ctx, s.TenantId, id)
	require.NoError(t, err)
	assert.Equal(t, entity.DeliverySent, got.DeliveryStatus)
	require.NotNil(t, got.SentAt)
	firstSentAt := *got.SentAt

	// 再次调用不改变任何状态
	n, err = h.tracker.MarkSent(ctx, s.TenantId, id, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	n, err = h.tracker.MarkFailed(ctx, s.TenantId, id, s.Parents[0], "late failure")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	got, err = h.notificationRepo.GetByNotificationID(ctx, s.TenantId, id)
	require.NoError(t, err)
	assert.Equal(t, entity.DeliverySent, got.DeliveryStatus)
	assert.True(t, got.SentAt.Equal(firstSentAt))

	_, err = h.tracker.MarkSent(ctx, "", id, "")
	assert.True(t, xerr.Is(err, xerr.NoTenantContext))
}

func TestStatusTracker_AllFailedSettlesAsFailed(t *testing.T) {
	h := newHarness(t)
	s := h.school
	ctx := context.Background()
	id := h.pendingNotification(t, s.TenantId, s.Teacher, s.Parents[0])

	_, err := h.tracker.MarkFailed(ctx, s.TenantId, id, s.Parents[0], "channel_rejected")
	require.NoError(t, err)
	got, err := h.notificationRepo.GetByNotificationID(ctx, s.TenantId, id)
	require.NoError(t, err)
	assert.Equal(t, entity.DeliveryFailed, got.DeliveryStatus)
}

func TestStatusTracker_MarkRead(t *testing.T) {
	h := newHarness(t)
	s := h.school
	ctx := context.Background()
	id := h.pendingNotification(t, s.TenantId, s.Teacher, s.Parents[0], s.Parents[1])

	// 替别人标记已读被拒绝，且不改任何行
	_, err := h.tracker.MarkRead(ctx, s.Parents[0], id, s.Parents[1])
	assert.True(t, xerr.Is(err, xerr.Forbidden))
	other, err := h.recipientRepo.Get(ctx, s.TenantId, id, s.Parents[1])
	require.NoError(t, err)
	assert.False(t, other.IsRead)

	ok, err := h.tracker.MarkRead(ctx, s.Parents[0], id, s.Parents[0])
	require.NoError(t, err)
	assert.True(t, ok)
	first, err := h.recipientRepo.Get(ctx, s.TenantId, id, s.Parents[0])
	require.NoError(t, err)

	ev := h.events.next(t)
	assert.Equal(t, entity.RealtimeCountChanged, ev.Kind)
	assert.Equal(t, []string{s.Parents[0]}, ev.AccountIds)

	ok, err = h.tracker.MarkRead(ctx, s.Parents[0], id, "")
	require.NoError(t, err)
	assert.True(t, ok)
	second, err := h.recipientRepo.Get(ctx, s.TenantId, id, s.Parents[0])
	require.NoError(t, err)
	assert.Equal(t, first.IsRead, second.IsRead)
	assert.True(t, first.ReadAt.Equal(*second.ReadAt))

	count, err := h.tracker.GetUnreadCount(ctx, s.Parents[0])
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	count, err = h.tracker.GetUnreadCount(ctx, s.Parents[1])
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = h.tracker.MarkRead(ctx, s.Parents[2], id, s.Parents[2])
	assert.True(t, xerr.Is(err, xerr.NotFound))

	// 其他学校的家长看不到这条通知
	_, err = h.tracker.MarkRead(ctx, h.other.Parents[0], id, h.other.Parents[0])
	assert.True(t, xerr.Is(err, xerr.NotFound))

	_, err = h.tracker.MarkRead(ctx, "ghost", id, "ghost")
	assert.True(t, xerr.Is(err, xerr.NoTenantContext))
}

func TestStatusTracker_MarkAllRead(t *testing.T) {
	h := newHarness(t)
	s := h.school
	ctx := context.Background()
	h.pendingNotification(t, s.TenantId, s.Teacher, s.Parents[0])
	h.pendingNotification(t, s.TenantId, s.Teacher, s.Parents[0], s.Parents[1])

	n, err := h.tracker.MarkAllRead(ctx, s.Parents[0])
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = h.tracker.MarkAllRead(ctx, s.Parents[0])
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestStatusTracker_DeliveryStatus(t *testing.T) {
	h := newHarness(t)
	s := h.school
	ctx := context.Background()

	res, err := h.factory.CreateNotification(ctx, request.CreateNotificationRequest{
		Type: string(entity.TypeAnnouncement), SenderId: s.Teacher, ClassId: s.ClassId, Message: "Picnic",
	})
	require.NoError(t, err)
	_, err = h.tracker.MarkRead(ctx, s.Parents[0], res.NotificationId, "")
	require.NoError(t, err)

	st, err := h.tracker.GetDeliveryStatus(ctx, s.Teacher, res.NotificationId)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 4, st.Sent)
	assert.Equal(t, 1, st.Read)
	assert.Equal(t, 3, st.Unread)
	assert.Equal(t, s.TenantId, st.TenantId)
	assert.Equal(t, 1, h.cache.size())

	// 已读变化后缓存被清掉，重新计算
	_, err = h.tracker.MarkRead(ctx, s.Parents[1], res.NotificationId, "")
	require.NoError(t, err)
	assert.Equal(t, 0, h.cache.size())
	st, err = h.tracker.GetDeliveryStatus(ctx, s.Admin, res.NotificationId)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Read)

	_, err = h.tracker.GetDeliveryStatus(ctx, s.Parents[0], res.NotificationId)
	assert.True(t, xerr.Is(err, xerr.Forbidden))
	_, err = h.tracker.GetDeliveryStatus(ctx, h.other.Teacher, res.NotificationId)
	assert.True(t, xerr.Is(err, xerr.NotFound))
}
