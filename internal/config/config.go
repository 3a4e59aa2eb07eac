package config

import (
	"log"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type MainConfig struct {
	AppName   string `toml:"appName"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	EnableTls bool   `toml:"enableTls"`
}

type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

type LogConfig struct {
	LogPath string `toml:"logPath"`
	Level   string `toml:"level"`
}

type JwtConfig struct {
	Key         string `toml:"key"`
	ExpireHours int    `toml:"expireHours"`
	Issuer      string `toml:"issuer"`
}

type KafkaConfig struct {
	Brokers          []string `toml:"brokers"`
	ClientID         string   `toml:"clientID"`
	DomainEventTopic string   `toml:"domainEventTopic"`
	RealtimeTopic    string   `toml:"realtimeTopic"`
	ConsumerGroupID  string   `toml:"consumerGroupID"`
	Partitions       int32    `toml:"partitions"`
	Replication      int16    `toml:"replication"`
}

type RedisConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"poolSize"`
	MinIdleConns int    `toml:"minIdleConns"`
}

type RabbitMQConfig struct {
	URL            string `toml:"url"`
	SmsQueue       string `toml:"smsQueue"`
	MessagingQueue string `toml:"messagingQueue"`
}

type PushConfig struct {
	Endpoint       string `toml:"endpoint"`
	AccessToken    string `toml:"accessToken"`
	TimeoutSeconds int    `toml:"timeoutSeconds"`
}

type NotificationConfig struct {
	DispatchConcurrency int    `toml:"dispatchConcurrency"`
	CacheTTLSeconds     int    `toml:"cacheTTLSeconds"`
	SweepCron           string `toml:"sweepCron"`
	PendingGraceSeconds int    `toml:"pendingGraceSeconds"`
	SweepBatchSize      int    `toml:"sweepBatchSize"`
	PushWaitSeconds     int    `toml:"pushWaitSeconds"`
}

type Config struct {
	MainConfig         `toml:"mainConfig"`
	MysqlConfig        `toml:"mysqlConfig"`
	JwtConfig          `toml:"jwtConfig"`
	KafkaConfig        `toml:"kafkaConfig"`
	LogConfig          `toml:"logConfig"`
	RedisConfig        `toml:"redisConfig"`
	RabbitMQConfig     `toml:"rabbitmqConfig"`
	PushConfig         `toml:"pushConfig"`
	NotificationConfig `toml:"notificationConfig"`
}

const defaultConfigPath = "configs/config_local.toml"

var config *Config

func LoadConfig() error {
	configPath := strings.TrimSpace(os.Getenv("SCHOOLLINK_CONFIG"))
	if configPath == "" {
		configPath = defaultConfigPath
	}
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		log.Printf("加载配置文件失败: %v, 尝试使用默认设置", err)
		return err
	}
	return nil
}

func GetConfig() *Config {
	if config == nil {
		config = new(Config)
		_ = LoadConfig()
	}
	return config
}

// 以下为带默认值的读取，配置缺省时使用

func (c NotificationConfig) Concurrency() int {
	if c.DispatchConcurrency <= 0 {
		return 16
	}
	return c.DispatchConcurrency
}

func (c NotificationConfig) CacheTTL() int {
	if c.CacheTTLSeconds <= 0 {
		return 15
	}
	return c.CacheTTLSeconds
}

func (c NotificationConfig) Sweep() string {
	if strings.TrimSpace(c.SweepCron) == "" {
		return "@every 1m"
	}
	return c.SweepCron
}

func (c NotificationConfig) PendingGrace() int {
	if c.PendingGraceSeconds <= 0 {
		return 120
	}
	return c.PendingGraceSeconds
}

func (c NotificationConfig) SweepBatch() int {
	if c.SweepBatchSize <= 0 {
		return 100
	}
	return c.SweepBatchSize
}

// PushWait 创建通知时等待推送结果的上限，超时后推送在后台继续
func (c NotificationConfig) PushWait() int {
	if c.PushWaitSeconds <= 0 {
		return 10
	}
	return c.PushWaitSeconds
}

func (c KafkaConfig) DomainTopic() string {
	if strings.TrimSpace(c.DomainEventTopic) == "" {
		return "school.domain-events"
	}
	return c.DomainEventTopic
}

func (c KafkaConfig) Realtime() string {
	if strings.TrimSpace(c.RealtimeTopic) == "" {
		return "notification.realtime"
	}
	return c.RealtimeTopic
}

func (c PushConfig) URL() string {
	if strings.TrimSpace(c.Endpoint) == "" {
		return "https://exp.host/--/api/v2/push/send"
	}
	return c.Endpoint
}
