package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"
	notificationPersistence "SchoolLink/internal/modules/notification/infrastructure/persistence"
	schoolService "SchoolLink/internal/modules/school/application/service"
	schoolPersistence "SchoolLink/internal/modules/school/infrastructure/persistence"
	"SchoolLink/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGateway struct {
	mu    sync.Mutex
	sent  []string
	errs  map[string]error
	delay time.Duration
}

func (g *fakeGateway) SendPush(ctx context.Context, token, title, body string, data map[string]interface{}) (bool, error) {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if strings.HasPrefix(token, "panic") {
		panic("gateway exploded")
	}
	if err, ok := g.errs[token]; ok {
		return false, err
	}
	g.sent = append(g.sent, token)
	return true, nil
}

func (g *fakeGateway) tokens() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.sent...)
}

type fakeBroadcaster struct {
	events chan entity.RealtimeEvent
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{events: make(chan entity.RealtimeEvent, 64)}
}

func (b *fakeBroadcaster) Broadcast(ctx context.Context, ev entity.RealtimeEvent) error {
	b.events <- ev
	return nil
}

func (b *fakeBroadcaster) next(t *testing.T) entity.RealtimeEvent {
	t.Helper()
	select {
	case ev := <-b.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no realtime event")
		return entity.RealtimeEvent{}
	}
}

type fakeRelay struct {
	mu   sync.Mutex
	msgs []repository.ChannelMessage
	err  error
}

func (r *fakeRelay) Relay(ctx context.Context, msg repository.ChannelMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

// memCache 与 redis 实现同样按 JSON 存取
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, tenantID, shape string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[tenantID+"|"+shape]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (c *memCache) Set(ctx context.Context, tenantID, shape string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[tenantID+"|"+shape] = b
	return nil
}

func (c *memCache) Clear(ctx context.Context, tenantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		if strings.HasPrefix(k, tenantID+"|") {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *memCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

type harness struct {
	db     *gorm.DB
	school testutil.School
	other  testutil.School

	gateway *fakeGateway
	events  *fakeBroadcaster
	relay   *fakeRelay
	cache   *memCache

	notificationRepo repository.NotificationRepository
	recipientRepo    repository.RecipientRepository
	tokenRepo        repository.PushTokenRepository
	settingRepo      repository.NotificationSettingRepository

	tenants       schoolService.TenantContextService
	relationships schoolService.RelationshipService
	catalog       schoolService.CatalogService

	factoryDeps FactoryDeps

	resolver   RecipientResolver
	tracker    StatusTracker
	dispatcher PushDispatcher
	channel    ChannelDelivery
	factory    NotificationFactory
	reader     TenantReader
	tokens     PushTokenService
	settings   NotificationSettingService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.OpenDB(t)
	h := &harness{
		db:      db,
		school:  testutil.SeedSchool(t, db, "t1"),
		other:   testutil.SeedSchool(t, db, "t2"),
		gateway: &fakeGateway{errs: map[string]error{}},
		events:  newFakeBroadcaster(),
		relay:   &fakeRelay{},
		cache:   newMemCache(),
	}

	accounts := schoolPersistence.NewAccountRepository(db)
	roster := schoolPersistence.NewRosterRepository(db)
	catalogRepo := schoolPersistence.NewCatalogRepository(db)
	h.tenants = schoolService.NewTenantContextService(accounts, schoolPersistence.NewTenantRepository(db))
	h.relationships = schoolService.NewRelationshipService(accounts, roster, catalogRepo)
	h.catalog = schoolService.NewCatalogService(catalogRepo, roster, accounts)

	h.notificationRepo = notificationPersistence.NewNotificationRepository(db)
	h.recipientRepo = notificationPersistence.NewRecipientRepository(db)
	h.tokenRepo = notificationPersistence.NewPushTokenRepository(db)
	h.settingRepo = notificationPersistence.NewNotificationSettingRepository(db)

	h.resolver = NewRecipientResolver(h.relationships)
	h.tracker = NewStatusTracker(h.notificationRepo, h.recipientRepo, h.tenants, h.events, h.cache)
	h.dispatcher = NewPushDispatcher(h.tokenRepo, h.settingRepo, h.gateway, 4)
	h.channel = NewChannelDelivery(h.recipientRepo, h.relationships, h.relay, h.tracker)
	h.factoryDeps = FactoryDeps{
		Tenants:          h.tenants,
		Catalog:          h.catalog,
		Resolver:         h.resolver,
		UnitOfWork:       notificationPersistence.NewNotificationUnitOfWork(db),
		NotificationRepo: h.notificationRepo,
		RecipientRepo:    h.recipientRepo,
		Tracker:          h.tracker,
		Dispatcher:       h.dispatcher,
		Channel:          h.channel,
		Broadcaster:      h.events,
		Cache:            h.cache,
		PushWait:         2 * time.Second,
	}
	h.factory = NewNotificationFactory(h.factoryDeps)
	h.reader = NewTenantReader(h.notificationRepo, h.recipientRepo, h.tenants, h.cache)
	h.tokens = NewPushTokenService(h.tokenRepo, h.tenants)
	h.settings = NewNotificationSettingService(h.settingRepo, h.tenants)
	return h
}

// newFactory 在默认依赖上替换部分协作者
func (h *harness) newFactory(mutate func(*FactoryDeps)) NotificationFactory {
	deps := h.factoryDeps
	mutate(&deps)
	return NewNotificationFactory(deps)
}

func (h *harness) addToken(t *testing.T, tenantID, accountID, token string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, h.tokenRepo.Upsert(context.Background(), &entity.PushToken{
		TenantId: tenantID, AccountId: accountID, Token: token, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}))
}

func recipientIDs(rs []entity.Recipient) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.AccountId)
	}
	return out
}

var errTransient = errors.New("broker unavailable")
