package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"SchoolLink/internal/modules/notification/domain/repository"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

const (
	defaultEndpoint = "https://exp.host/--/api/v2/push/send"
	sendPath        = "/push/send"
)

type expoGateway struct {
	host        string
	apiURL      string
	accessToken string
	timeout     time.Duration
	transport   http.RoundTripper
}

// NewExpoGateway 每次调用发送一条消息，DeviceNotRegistered 和格式非法的令牌映射为 ErrDestinationRevoked
func NewExpoGateway(endpoint, accessToken string, timeout time.Duration) repository.PushGateway {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = defaultEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	host, apiURL := splitEndpoint(endpoint)
	return &expoGateway{
		host:        host,
		apiURL:      apiURL,
		accessToken: accessToken,
		timeout:     timeout,
		transport:   http.DefaultTransport,
	}
}

// splitEndpoint 把完整的发送地址拆成 SDK 需要的 host 和 api 前缀
func splitEndpoint(endpoint string) (string, string) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Host == "" {
		return expo.DefaultHost, expo.DefaultBaseAPIURL
	}
	apiURL := strings.TrimSuffix(strings.TrimRight(u.Path, "/"), sendPath)
	if apiURL == "" {
		apiURL = expo.DefaultBaseAPIURL
	}
	return u.Scheme + "://" + u.Host, apiURL
}

// callTransport 给 SDK 发出的请求带上本次调用的 ctx 和鉴权头
type callTransport struct {
	ctx         context.Context
	accessToken string
	base        http.RoundTripper
}

func (t callTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(t.ctx)
	if t.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.accessToken)
	}
	return t.base.RoundTrip(req)
}

func (g *expoGateway) client(ctx context.Context) *expo.PushClient {
	return expo.NewPushClient(&expo.ClientConfig{
		Host:   g.host,
		APIURL: g.apiURL,
		HTTPClient: &http.Client{
			Timeout:   g.timeout,
			Transport: callTransport{ctx: ctx, accessToken: g.accessToken, base: g.transport},
		},
	})
}

func (g *expoGateway) SendPush(ctx context.Context, token, title, body string, data map[string]interface{}) (bool, error) {
	to, err := expo.NewExponentPushToken(token)
	if err != nil {
		return false, fmt.Errorf("%w: %v", repository.ErrDestinationRevoked, err)
	}

	resp, err := g.client(ctx).Publish(&expo.PushMessage{
		To:        []expo.ExponentPushToken{to},
		Title:     title,
		Body:      body,
		Data:      stringData(data),
		Sound:     "default",
		Priority:  "high",
		ChannelID: "default",
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, fmt.Errorf("expo push: %w", err)
	}
	if err := resp.ValidateResponse(); err != nil {
		var gone *expo.DeviceNotRegisteredError
		if errors.As(err, &gone) {
			return false, fmt.Errorf("%w: %s", repository.ErrDestinationRevoked, resp.Message)
		}
		return false, fmt.Errorf("expo push: %w", err)
	}
	return true, nil
}

// stringData SDK 的 data 字段只接受字符串值
func stringData(data map[string]interface{}) map[string]string {
	if len(data) == 0 {
		return nil
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}
