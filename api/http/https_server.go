package http

import (
	"context"
	"time"

	"SchoolLink/internal/config"
	"SchoolLink/internal/initial"
	jwtMiddleware "SchoolLink/internal/middleware/jwt"
	"SchoolLink/internal/modules/notification/application/service"
	"SchoolLink/internal/modules/notification/domain/repository"
	"SchoolLink/internal/modules/notification/infrastructure/cache"
	"SchoolLink/internal/modules/notification/infrastructure/channel"
	"SchoolLink/internal/modules/notification/infrastructure/mq"
	"SchoolLink/internal/modules/notification/infrastructure/mq/kafka"
	notificationPersistence "SchoolLink/internal/modules/notification/infrastructure/persistence"
	"SchoolLink/internal/modules/notification/infrastructure/push"
	"SchoolLink/internal/modules/notification/infrastructure/realtime"
	"SchoolLink/internal/modules/notification/interface/event"
	notificationHandler "SchoolLink/internal/modules/notification/interface/http"
	"SchoolLink/internal/modules/notification/interface/scheduler"
	notificationWs "SchoolLink/internal/modules/notification/interface/websocket"
	schoolService "SchoolLink/internal/modules/school/application/service"
	schoolPersistence "SchoolLink/internal/modules/school/infrastructure/persistence"
	"SchoolLink/pkg/ssl"
	"SchoolLink/pkg/util"
	"SchoolLink/pkg/ws"
	"SchoolLink/pkg/zlog"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var GE *gin.Engine

// 后台组件：由 main 启停
var (
	sweeperScheduler *scheduler.SweeperScheduler
	domainConsumer   mq.Consumer
	domainHandler    mq.Handler
	realtimeConsumer mq.Consumer
	realtimeHandler  mq.Handler
	publisher        mq.Publisher
	relay            *channel.RabbitRelay
	bgCancel         context.CancelFunc
)

func init() {
	conf := config.GetConfig()

	GE = gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	GE.Use(cors.New(corsConfig))
	GE.Use(ssl.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port, conf.MainConfig.EnableTls))

	wsHub := ws.NewHub()
	instanceID := util.GenerateShortID()

	// school
	accountRepo := schoolPersistence.NewAccountRepository(initial.GormDB)
	rosterRepo := schoolPersistence.NewRosterRepository(initial.GormDB)
	catalogRepo := schoolPersistence.NewCatalogRepository(initial.GormDB)
	tenantRepo := schoolPersistence.NewTenantRepository(initial.GormDB)
	tenants := schoolService.NewTenantContextService(accountRepo, tenantRepo)
	relationships := schoolService.NewRelationshipService(accountRepo, rosterRepo, catalogRepo)
	catalog := schoolService.NewCatalogService(catalogRepo, rosterRepo, accountRepo)

	// notification 基础设施
	notificationRepo := notificationPersistence.NewNotificationRepository(initial.GormDB)
	recipientRepo := notificationPersistence.NewRecipientRepository(initial.GormDB)
	tokenRepo := notificationPersistence.NewPushTokenRepository(initial.GormDB)
	settingRepo := notificationPersistence.NewNotificationSettingRepository(initial.GormDB)
	uow := notificationPersistence.NewNotificationUnitOfWork(initial.GormDB)
	listCache := cache.NewRedisListCache(time.Duration(conf.NotificationConfig.CacheTTL()) * time.Second)
	gateway := push.NewExpoGateway(conf.PushConfig.URL(), conf.PushConfig.AccessToken, time.Duration(conf.PushConfig.TimeoutSeconds)*time.Second)

	hubBroadcaster := realtime.NewHubBroadcaster(wsHub)
	broadcasters := []repository.Broadcaster{hubBroadcaster}
	kafkaConf := conf.KafkaConfig
	if len(kafkaConf.Brokers) > 0 {
		if err := kafka.EnsureTopics(kafka.TopicAdminConfig{Brokers: kafkaConf.Brokers, ClientID: kafkaConf.ClientID},
			kafka.TopicSpec{Name: kafkaConf.DomainTopic(), Partitions: kafkaConf.Partitions, Replication: kafkaConf.Replication},
			kafka.TopicSpec{Name: kafkaConf.Realtime(), Partitions: kafkaConf.Partitions, Replication: kafkaConf.Replication, Retention: time.Hour},
		); err != nil {
			zlog.Warn("kafka: ensure topics failed", zap.Error(err))
		}
		p, err := kafka.NewPublisher(kafka.PublisherConfig{Brokers: kafkaConf.Brokers, ClientID: kafkaConf.ClientID})
		if err != nil {
			zlog.Warn("kafka: publisher unavailable, realtime stays local", zap.Error(err))
		} else {
			publisher = p
			broadcasters = append(broadcasters, realtime.NewKafkaBroadcaster(p, kafkaConf.Realtime(), instanceID))
		}
	}
	broadcaster := realtime.NewComposite(broadcasters...)

	var channelRelay repository.ChannelRelay
	if url := conf.RabbitMQConfig.URL; url != "" {
		r, err := channel.DialRabbitRelay(url, conf.RabbitMQConfig.SmsQueue, conf.RabbitMQConfig.MessagingQueue)
		if err != nil {
			zlog.Warn("rabbitmq: relay unavailable, channel rows stay pending", zap.Error(err))
		} else {
			relay = r
			channelRelay = r
		}
	}

	// notification 服务
	tracker := service.NewStatusTracker(notificationRepo, recipientRepo, tenants, broadcaster, listCache)
	dispatcher := service.NewPushDispatcher(tokenRepo, settingRepo, gateway, conf.NotificationConfig.Concurrency())
	channelDelivery := service.NewChannelDelivery(recipientRepo, relationships, channelRelay, tracker)
	factory := service.NewNotificationFactory(service.FactoryDeps{
		Tenants:          tenants,
		Catalog:          catalog,
		Resolver:         service.NewRecipientResolver(relationships),
		UnitOfWork:       uow,
		NotificationRepo: notificationRepo,
		RecipientRepo:    recipientRepo,
		Tracker:          tracker,
		Dispatcher:       dispatcher,
		Channel:          channelDelivery,
		Broadcaster:      broadcaster,
		Cache:            listCache,
		PushWait:         time.Duration(conf.NotificationConfig.PushWait()) * time.Second,
	})
	reader := service.NewTenantReader(notificationRepo, recipientRepo, tenants, listCache)
	tokenSvc := service.NewPushTokenService(tokenRepo, tenants)
	settingSvc := service.NewNotificationSettingService(settingRepo, tenants)
	sweeper := service.NewPendingSweeper(notificationRepo, tracker, channelDelivery,
		time.Duration(conf.NotificationConfig.PendingGrace())*time.Second, conf.NotificationConfig.SweepBatch())

	sweeperScheduler = scheduler.NewSweeperScheduler(sweeper, conf.NotificationConfig.Sweep())
	if len(kafkaConf.Brokers) > 0 {
		group := kafkaConf.ConsumerGroupID
		if group == "" {
			group = "schoollink-notification"
		}
		c, err := kafka.NewConsumer(kafka.ConsumerConfig{Brokers: kafkaConf.Brokers, GroupID: group, Topics: []string{kafkaConf.DomainTopic()}, ClientID: kafkaConf.ClientID})
		if err != nil {
			zlog.Warn("kafka: domain event consumer unavailable", zap.Error(err))
		} else {
			domainConsumer = c
			domainHandler = event.NewDomainEventHandler(factory)
		}
		// 每个实例独立的消费组，保证每个实例都能收到全部实时事件
		rc, err := kafka.NewConsumer(kafka.ConsumerConfig{Brokers: kafkaConf.Brokers, GroupID: group + "-rt-" + instanceID, Topics: []string{kafkaConf.Realtime()}, ClientID: kafkaConf.ClientID})
		if err != nil {
			zlog.Warn("kafka: realtime relay unavailable", zap.Error(err))
		} else {
			realtimeConsumer = rc
			realtimeHandler = realtime.NewRelayHandler(hubBroadcaster, instanceID)
		}
	}

	notificationH := notificationHandler.NewNotificationHandler(factory, tracker, reader)
	pushH := notificationHandler.NewPushTokenHandler(tokenSvc, settingSvc)
	wsH := notificationWs.NewWsHandler(wsHub, tracker)

	GE.GET("/wss", wsH.Connect)
	GE.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authed := GE.Group("/")
	authed.Use(jwtMiddleware.Auth())
	authed.GET("/auth/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"uuid":     c.GetString("uuid"),
			"username": c.GetString("username"),
		})
	})
	notificationHandler.Register(authed, notificationH, pushH)
}

// StartBackground 启动定时补偿和 Kafka 消费
func StartBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	bgCancel = cancel
	if err := sweeperScheduler.Start(); err != nil {
		zlog.Error("pending sweeper not started", zap.Error(err))
	}
	runConsumer(ctx, "domain-events", domainConsumer, domainHandler)
	runConsumer(ctx, "realtime", realtimeConsumer, realtimeHandler)
}

func runConsumer(ctx context.Context, name string, c mq.Consumer, h mq.Handler) {
	if c == nil || h == nil {
		return
	}
	go func() {
		if err := c.Run(ctx, h); err != nil && ctx.Err() == nil {
			zlog.Error("kafka consumer stopped", zap.String("consumer", name), zap.Error(err))
		}
	}()
}

// StopBackground 按依赖倒序关闭
func StopBackground() {
	if bgCancel != nil {
		bgCancel()
	}
	sweeperScheduler.Stop()
	for _, c := range []mq.Consumer{domainConsumer, realtimeConsumer} {
		if c != nil {
			_ = c.Close()
		}
	}
	if publisher != nil {
		_ = publisher.Close()
	}
	if relay != nil {
		_ = relay.Close()
	}
}
