package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SchoolLink/internal/config"
	"SchoolLink/internal/modules/notification/application/dto/respond"
	"SchoolLink/pkg/util/myjwt"
	"SchoolLink/pkg/ws"
	"SchoolLink/pkg/xerr"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct{}

func (fakeTracker) MarkSent(ctx context.Context, tenantID, notificationID, recipientID string) (int64, error) {
	return 0, nil
}

func (fakeTracker) MarkFailed(ctx context.Context, tenantID, notificationID, recipientID, reason string) (int64, error) {
	return 0, nil
}

func (fakeTracker) MarkRead(ctx context.Context, callerID, notificationID, recipientID string) (bool, error) {
	return false, nil
}

func (fakeTracker) MarkAllRead(ctx context.Context, callerID string) (int64, error) { return 0, nil }

func (fakeTracker) GetUnreadCount(ctx context.Context, callerID string) (int64, error) {
	if callerID == "orphan" {
		return 0, xerr.ErrNoTenantContext
	}
	return 4, nil
}

func (fakeTracker) GetDeliveryStatus(ctx context.Context, callerID, notificationID string) (*respond.DeliveryStatusRespond, error) {
	return nil, nil
}

func newServer(t *testing.T, hub *ws.Hub) *httptest.Server {
	t.Helper()
	config.GetConfig().JwtConfig.Key = "ws-test-key"
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/wss", NewWsHandler(hub, fakeTracker{}).Connect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, clientID, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/wss?client_id=" + clientID + "&token=" + token
}

func TestConnect_PushesToAccount(t *testing.T) {
	hub := ws.NewHub()
	srv := newServer(t, hub)
	token, err := myjwt.GenerateToken("p1", "parent")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "p1", token), nil)
	require.NoError(t, err)
	defer conn.Close()

	var first map[string]interface{}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "connected", first["type"])
	assert.Equal(t, float64(4), first["count"])

	require.Eventually(t, func() bool { return hub.Online("p1") }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.SendJSON("p1", map[string]string{"type": "count_changed"}))
	var ev map[string]string
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "count_changed", ev["type"])
}

func TestConnect_Rejections(t *testing.T) {
	srv := newServer(t, ws.NewHub())
	token, err := myjwt.GenerateToken("p1", "parent")
	require.NoError(t, err)
	orphan, err := myjwt.GenerateToken("orphan", "x")
	require.NoError(t, err)

	tests := []struct {
		name string
		url  string
		code int
	}{
		{"missing token", wsURL(srv, "p1", ""), http.StatusBadRequest},
		{"token for another account", wsURL(srv, "p2", token), http.StatusUnauthorized},
		{"garbage token", wsURL(srv, "p1", "abc"), http.StatusUnauthorized},
		{"no tenant", wsURL(srv, "orphan", orphan), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(tt.url, nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}
