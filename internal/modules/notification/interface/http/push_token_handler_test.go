package handler

import (
	"context"
	"encoding/json"
	"testing"

	"SchoolLink/internal/modules/notification/application/dto/request"
	"SchoolLink/internal/modules/notification/application/dto/respond"
	"SchoolLink/pkg/xerr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	registered map[string]string
}

func (f *fakeTokens) RegisterPushToken(ctx context.Context, callerID string, req request.RegisterPushTokenRequest) error {
	f.registered[req.Token] = callerID
	return nil
}

func (f *fakeTokens) UnregisterPushToken(ctx context.Context, callerID, token string) error {
	if f.registered[token] != callerID {
		return xerr.New(xerr.NotFound, "设备令牌不存在")
	}
	delete(f.registered, token)
	return nil
}

type fakeSettings struct {
	stored map[string]respond.NotificationSettingRespond
}

func (f *fakeSettings) GetSettings(ctx context.Context, callerID string) (*respond.NotificationSettingRespond, error) {
	if s, ok := f.stored[callerID]; ok {
		return &s, nil
	}
	return &respond.NotificationSettingRespond{PushEnabled: true, DisabledTypes: []string{}}, nil
}

func (f *fakeSettings) UpdateSettings(ctx context.Context, callerID string, req request.UpdateNotificationSettingRequest) (*respond.NotificationSettingRespond, error) {
	cur, _ := f.GetSettings(ctx, callerID)
	if req.PushEnabled != nil {
		cur.PushEnabled = *req.PushEnabled
	}
	if req.DisabledTypes != nil {
		cur.DisabledTypes = *req.DisabledTypes
	}
	f.stored[callerID] = *cur
	return cur, nil
}

func TestPushTokenHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := &fakeTokens{registered: map[string]string{}}
	r := gin.New()
	authed := r.Group("/", func(c *gin.Context) {
		c.Set("uuid", c.GetHeader("X-Test-Account"))
		c.Next()
	})
	Register(authed, NewNotificationHandler(nil, nil, nil), NewPushTokenHandler(tokens, nil))

	env := call(t, r, "/push/registerToken", "p1", map[string]string{"token": "ExponentPushToken[x]", "device_type": "android"})
	assert.Equal(t, xerr.OK, env.Code)
	assert.Equal(t, "p1", tokens.registered["ExponentPushToken[x]"])

	env = call(t, r, "/push/registerToken", "p1", map[string]string{})
	assert.Equal(t, xerr.BadRequest, env.Code)

	env = call(t, r, "/push/unregisterToken", "p2", map[string]string{"token": "ExponentPushToken[x]"})
	assert.Equal(t, xerr.NotFound, env.Code)
	env = call(t, r, "/push/unregisterToken", "p1", map[string]string{"token": "ExponentPushToken[x]"})
	assert.Equal(t, xerr.OK, env.Code)
}

func TestPushSettingsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	settings := &fakeSettings{stored: map[string]respond.NotificationSettingRespond{}}
	r := gin.New()
	authed := r.Group("/", func(c *gin.Context) {
		c.Set("uuid", c.GetHeader("X-Test-Account"))
		c.Next()
	})
	Register(authed, NewNotificationHandler(nil, nil, nil), NewPushTokenHandler(nil, settings))

	env := call(t, r, "/push/updateSettings", "p1", map[string]interface{}{"push_enabled": false, "disabled_types": []string{"grade_entered"}})
	assert.Equal(t, xerr.OK, env.Code)
	assert.False(t, settings.stored["p1"].PushEnabled)

	env = call(t, r, "/push/settings", "p1", map[string]string{})
	assert.Equal(t, xerr.OK, env.Code)
	var data respond.NotificationSettingRespond
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.False(t, data.PushEnabled)
	assert.Equal(t, []string{"grade_entered"}, data.DisabledTypes)

	env = call(t, r, "/push/updateSettings", "p1", "{broken")
	assert.Equal(t, xerr.BadRequest, env.Code)
}
