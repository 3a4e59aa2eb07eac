package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"SchoolLink/internal/modules/notification/application/dto/request"
	"SchoolLink/internal/modules/notification/application/dto/respond"
	"SchoolLink/pkg/xerr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFactory struct {
	last request.CreateNotificationRequest
	err  error
}

func (f *fakeFactory) CreateNotification(ctx context.Context, req request.CreateNotificationRequest) (*respond.CreateNotificationRespond, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &respond.CreateNotificationRespond{NotificationId: "n1", RecipientCount: 2}, nil
}

func (f *fakeFactory) CreateBulkNotification(ctx context.Context, req request.CreateBulkNotificationRequest) (*respond.CreateNotificationRespond, error) {
	return &respond.CreateNotificationRespond{NotificationId: "n2", RecipientCount: 5}, nil
}

func (f *fakeFactory) CreateAttendanceBulk(ctx context.Context, req request.AttendanceBulkRequest) (*respond.AttendanceBulkRespond, error) {
	return &respond.AttendanceBulkRespond{Total: len(req.StudentIds)}, nil
}

type fakeTracker struct {
	readCaller, readRecipient string
}

func (f *fakeTracker) MarkSent(ctx context.Context, tenantID, notificationID, recipientID string) (int64, error) {
	return 0, nil
}

func (f *fakeTracker) MarkFailed(ctx context.Context, tenantID, notificationID, recipientID, reason string) (int64, error) {
	return 0, nil
}

func (f *fakeTracker) MarkRead(ctx context.Context, callerID, notificationID, recipientID string) (bool, error) {
	f.readCaller, f.readRecipient = callerID, recipientID
	if recipientID != "" && recipientID != callerID {
		return false, xerr.New(xerr.Forbidden, "只能标记自己的通知")
	}
	return true, nil
}

func (f *fakeTracker) MarkAllRead(ctx context.Context, callerID string) (int64, error) {
	return 3, nil
}

func (f *fakeTracker) GetUnreadCount(ctx context.Context, callerID string) (int64, error) {
	if callerID == "ghost" {
		return 0, xerr.ErrNoTenantContext
	}
	return 7, nil
}

func (f *fakeTracker) GetDeliveryStatus(ctx context.Context, callerID, notificationID string) (*respond.DeliveryStatusRespond, error) {
	return &respond.DeliveryStatusRespond{NotificationId: notificationID, Total: 2}, nil
}

type fakeReader struct{}

func (fakeReader) ListForRecipient(ctx context.Context, callerID string, req request.ListNotificationRequest) ([]respond.NotificationItem, error) {
	return []respond.NotificationItem{{NotificationId: "n1"}}, nil
}

func (fakeReader) ListForTenant(ctx context.Context, callerID string, req request.TenantListRequest) ([]respond.TenantNotificationItem, error) {
	return nil, xerr.New(xerr.Forbidden, "无权查看学校通知列表")
}

func (fakeReader) GetNotificationStats(ctx context.Context, callerID string) (*respond.NotificationStatsRespond, error) {
	if callerID != "admin-1" {
		return nil, xerr.New(xerr.Forbidden, "无权查看通知统计")
	}
	return &respond.NotificationStatsRespond{
		Total:       4,
		ByType:      map[string]int64{"announcement": 4},
		ByStatus:    map[string]int64{"sent": 3, "pending": 1},
		RecentCount: 2,
	}, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newRouter(f *fakeFactory, tr *fakeTracker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authed := r.Group("/", func(c *gin.Context) {
		c.Set("uuid", c.GetHeader("X-Test-Account"))
		c.Next()
	})
	Register(authed, NewNotificationHandler(f, tr, fakeReader{}), NewPushTokenHandler(nil, nil))
	return r
}

func call(t *testing.T, r *gin.Engine, path, account string, body interface{}) envelope {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Account", account)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestCreate_SenderIsCaller(t *testing.T) {
	f := &fakeFactory{}
	r := newRouter(f, &fakeTracker{})

	env := call(t, r, "/notification/create", "teacher-1", map[string]interface{}{"type": "announcement", "message": "hi", "class_id": "c1"})
	assert.Equal(t, xerr.OK, env.Code)
	assert.Equal(t, "teacher-1", f.last.SenderId)
	var data respond.CreateNotificationRespond
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 2, data.RecipientCount)

	env = call(t, r, "/notification/create", "teacher-1", map[string]interface{}{"type": "announcement", "sender_id": "someone-else"})
	assert.Equal(t, xerr.Forbidden, env.Code)

	env = call(t, r, "/notification/create", "teacher-1", map[string]interface{}{"message": "missing type"})
	assert.Equal(t, xerr.BadRequest, env.Code)

	env = call(t, r, "/notification/create", "teacher-1", "{broken")
	assert.Equal(t, xerr.BadRequest, env.Code)
}

func TestCreate_DomainErrorsKeepTheirCode(t *testing.T) {
	f := &fakeFactory{err: xerr.ErrNoRecipients}
	r := newRouter(f, &fakeTracker{})

	env := call(t, r, "/notification/create", "teacher-1", map[string]interface{}{"type": "grade_entered"})
	assert.Equal(t, xerr.NoRecipients, env.Code)
	assert.Equal(t, xerr.ErrNoRecipients.Message, env.Message)
}

func TestReadEndpoints(t *testing.T) {
	tr := &fakeTracker{}
	r := newRouter(&fakeFactory{}, tr)

	env := call(t, r, "/notification/unreadCount", "p1", map[string]string{})
	assert.Equal(t, xerr.OK, env.Code)
	assert.JSONEq(t, `{"count":7}`, string(env.Data))

	env = call(t, r, "/notification/unreadCount", "ghost", map[string]string{})
	assert.Equal(t, xerr.NoTenantContext, env.Code)

	env = call(t, r, "/notification/markRead", "p1", map[string]string{"notification_id": "n1"})
	assert.Equal(t, xerr.OK, env.Code)
	assert.JSONEq(t, `{"read":true}`, string(env.Data))
	assert.Equal(t, "p1", tr.readCaller)

	env = call(t, r, "/notification/markRead", "p1", map[string]string{"notification_id": "n1", "recipient_id": "p2"})
	assert.Equal(t, xerr.Forbidden, env.Code)

	env = call(t, r, "/notification/markRead", "p1", map[string]string{})
	assert.Equal(t, xerr.BadRequest, env.Code)

	env = call(t, r, "/notification/markAllRead", "p1", map[string]string{})
	assert.JSONEq(t, `{"affected":3}`, string(env.Data))

	env = call(t, r, "/notification/list", "p1", map[string]interface{}{"limit": 10})
	assert.Equal(t, xerr.OK, env.Code)

	env = call(t, r, "/notification/tenantList", "p1", map[string]interface{}{})
	assert.Equal(t, xerr.Forbidden, env.Code)

	env = call(t, r, "/notification/deliveryStatus", "t1", map[string]string{"notification_id": "n9"})
	var st respond.DeliveryStatusRespond
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, "n9", st.NotificationId)
}

func TestEnvelopeShape(t *testing.T) {
	r := newRouter(&fakeFactory{}, &fakeTracker{})
	env := call(t, r, "/notification/attendanceBulk", "teacher-1", map[string]interface{}{"date": "2026-03-02", "student_ids": []string{"s1", "s2"}})
	assert.Equal(t, xerr.OK, env.Code)
	var data respond.AttendanceBulkRespond
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 2, data.Total)
}

func TestStats(t *testing.T) {
	r := newRouter(&fakeFactory{}, &fakeTracker{})

	env := call(t, r, "/notification/stats", "admin-1", map[string]string{})
	assert.Equal(t, xerr.OK, env.Code)
	var data respond.NotificationStatsRespond
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(4), data.Total)
	assert.Equal(t, int64(3), data.ByStatus["sent"])
	assert.Equal(t, int64(2), data.RecentCount)

	env = call(t, r, "/notification/stats", "parent-1", map[string]string{})
	assert.Equal(t, xerr.Forbidden, env.Code)
}
