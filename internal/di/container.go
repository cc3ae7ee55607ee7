// internal/di/container.go
package di

import (
	"context"
	"fmt"

	"solar-sync/internal/archive"
	"solar-sync/internal/cache"
	"solar-sync/internal/common/idgen"
	"solar-sync/internal/config"
	"solar-sync/internal/database"
	"solar-sync/internal/devicesync"
	"solar-sync/internal/handlers"
	"solar-sync/internal/interfaces"
	"solar-sync/internal/messaging"
	"solar-sync/internal/redis"
	"solar-sync/internal/services"
	"solar-sync/internal/store"
	"solar-sync/internal/utils"
	"solar-sync/internal/weather"
	"solar-sync/internal/worker"

	"github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
	goredis "github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	mqttbroker "github.com/mochi-mqtt/server/v2"
	"gorm.io/gorm"
)

// Container 의존성 주입 컨테이너
type Container struct {
	// Core Services
	Config      interfaces.ConfigProvider
	Logger      interfaces.Logger
	IDGenerator interfaces.IDGenerator

	// Infra
	RedisClient      *goredis.Client
	DB               *gorm.DB
	Influx           *influxdb3.Client
	Broker           *mqttbroker.Server
	Store            store.DeviceStore
	Cache            interfaces.CacheService
	Envelopes        *cache.EnvelopeCache
	MessagePublisher interfaces.MessagePublisher
	CleaningArchive  interfaces.CleaningArchive
	TelemetryArchive interfaces.TelemetryArchive

	// Business
	Topics           messaging.Topics
	CommandPublisher interfaces.CommandPublisher
	Sync             *devicesync.Service
	WeatherTransport *weather.HTTPTransport
	DustIngestor     *weather.DustIngestor
	Router           *messaging.Router
	Subscriber       *messaging.Subscriber
	AutoCleaner      *worker.AutoCleaner

	// HTTP
	API  *handlers.APIHandler
	Echo *echo.Echo
}

// NewContainer 새로운 컨테이너 생성
func NewContainer(cfg *config.Config) (*Container, error) {
	container := &Container{}

	// 1. 기본 서비스들 초기화
	if err := container.initCoreServices(cfg); err != nil {
		return nil, fmt.Errorf("failed to init core services: %v", err)
	}

	// 2. 인프라 서비스들 초기화
	if err := container.initInfraServices(cfg); err != nil {
		container.Cleanup()
		return nil, fmt.Errorf("failed to init infra services: %v", err)
	}

	// 3. 비즈니스 서비스들 초기화
	container.initBusinessServices(cfg)

	// 4. 핸들러들 초기화
	container.initHandlers()

	return container, nil
}

// initCoreServices 핵심 서비스들 초기화
func (c *Container) initCoreServices(cfg *config.Config) error {
	c.Config = services.NewConfigProvider(cfg)
	c.Logger = services.NewLogger(cfg.LogLevel)
	if err := utils.EnableFileOutput(utils.Logger, cfg.LogFile, cfg.LogMaxAgeDays); err != nil {
		return fmt.Errorf("log file init failed: %v", err)
	}
	c.IDGenerator = idgen.NewGenerator()

	return nil
}

// initInfraServices 인프라 서비스들 초기화
func (c *Container) initInfraServices(cfg *config.Config) error {
	// Redis 초기화 (상태 저장소 + 캐시)
	redisClient, err := redis.NewRedisClient(cfg)
	if err != nil {
		return fmt.Errorf("redis init failed: %v", err)
	}
	c.RedisClient = redisClient
	c.Store = store.NewRedisStore(redisClient, cfg.RedisPrefix)
	c.Cache = services.NewCacheService(redisClient)
	c.Envelopes = cache.NewEnvelopeCache(c.Cache, cache.DefaultPrefix, c.Logger)

	// Database 초기화 (청소 이력, 선택)
	c.CleaningArchive = archive.Noop{}
	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(cfg)
		if err != nil {
			return fmt.Errorf("database init failed: %v", err)
		}
		c.DB = db
		c.CleaningArchive = archive.NewCleaningLogRepository(db)
	} else {
		c.Logger.Infof("ℹ️ DB_ENABLED=false, cleaning history is not persisted")
	}

	// InfluxDB 초기화 (텔레메트리, 선택)
	c.TelemetryArchive = archive.Noop{}
	if cfg.InfluxURL != "" {
		influx, err := archive.NewInfluxClient(cfg)
		if err != nil {
			return fmt.Errorf("influxdb init failed: %v", err)
		}
		c.Influx = influx
		c.TelemetryArchive = archive.NewTelemetryWriter(influx, cfg.Timeout)
	} else {
		c.Logger.Infof("ℹ️ INFLUXDB_URL not set, telemetry is not archived")
	}

	// 내장 MQTT 브로커 (선택)
	if cfg.MQTTEmbedded {
		broker, err := messaging.NewEmbeddedBroker(cfg.MQTTEmbeddedAddr)
		if err != nil {
			return fmt.Errorf("embedded broker init failed: %v", err)
		}
		if err := broker.Serve(); err != nil {
			return fmt.Errorf("embedded broker start failed: %v", err)
		}
		c.Broker = broker
		c.Logger.Infof("📡 Embedded MQTT broker listening on %s", cfg.MQTTEmbeddedAddr)
	}

	// MQTT 초기화
	mqttClient, err := messaging.NewMQTTClient(cfg)
	if err != nil {
		return fmt.Errorf("mqtt init failed: %v", err)
	}
	c.MessagePublisher = mqttClient

	return nil
}

// initBusinessServices 비즈니스 서비스들 초기화
func (c *Container) initBusinessServices(cfg *config.Config) {
	c.Topics = messaging.NewTopics(c.Config.GetTopicPrefix())
	c.CommandPublisher = messaging.NewDevicePublisher(c.MessagePublisher, c.Topics)

	c.Sync = devicesync.NewService(
		c.Store,
		c.CommandPublisher,
		c.CleaningArchive,
		c.TelemetryArchive,
		c.IDGenerator,
		c.Logger,
	)

	c.WeatherTransport = weather.NewHTTPTransport(c.Config.GetTimeout())
	c.DustIngestor = weather.NewDustIngestor(
		c.Store,
		c.Envelopes,
		cfg.WeatherCacheTTL,
		c.TelemetryArchive,
		c.WeatherTransport,
		c.Config,
		c.Logger,
	)

	c.Router = messaging.NewRouter(c.Topics, c.Sync, c.Config.GetTimeout())
	c.Subscriber = messaging.NewSubscriber(c.MessagePublisher, c.Router, c.Topics)

	c.AutoCleaner = worker.NewAutoCleaner(
		c.Sync,
		c.DustIngestor,
		cfg.WorkerInterval,
		cfg.DustRefreshInterval,
		c.Logger,
	)
}

// initHandlers 핸들러들 초기화
func (c *Container) initHandlers() {
	c.API = handlers.NewAPIHandler(c.Sync, c.DustIngestor)
	c.API.SetHealthProbe(c.GetHealthStatus)
	c.Echo = handlers.NewEcho()
	c.API.RegisterRoutes(c.Echo)
}

// Start MQTT 구독과 자동 청소 작업자 시작
func (c *Container) Start(ctx context.Context) error {
	if err := c.Subscriber.SubscribeAll(); err != nil {
		return fmt.Errorf("failed to subscribe device topics: %v", err)
	}
	if err := c.AutoCleaner.Start(ctx); err != nil {
		return err
	}

	c.Logger.Infof("🚀 Solar sync service started successfully")
	return nil
}

// GetHealthStatus 헬스 체크 상태 반환
func (c *Container) GetHealthStatus() map[string]interface{} {
	connected := false
	if c.MessagePublisher != nil {
		connected = c.MessagePublisher.IsConnected()
	}
	return map[string]interface{}{
		"mqtt_connected":  connected,
		"db_enabled":      c.DB != nil,
		"influx_enabled":  c.Influx != nil,
		"embedded_broker": c.Broker != nil,
		"status":          "running",
	}
}

// Cleanup 리소스 정리
func (c *Container) Cleanup() {
	if c.MessagePublisher != nil {
		c.MessagePublisher.Disconnect(250)
	}
	if c.WeatherTransport != nil {
		c.WeatherTransport.Close()
	}
	if c.Broker != nil {
		if err := c.Broker.Close(); err != nil {
			c.Logger.Errorf("embedded broker shutdown failed: %v", err)
		}
	}
	if c.Influx != nil {
		if err := c.Influx.Close(); err != nil {
			c.Logger.Errorf("influxdb close failed: %v", err)
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}
	c.Logger.Infof("Container cleanup completed")
}
