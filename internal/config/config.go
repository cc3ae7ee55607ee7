package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBEnabled  bool

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// MQTT
	MQTTBroker       string
	MQTTClientID     string
	MQTTUsername     string
	MQTTPassword     string
	MQTTTopicPrefix  string
	MQTTEmbedded     bool
	MQTTEmbeddedAddr string

	// InfluxDB
	InfluxURL      string
	InfluxToken    string
	InfluxDatabase string

	// Weather
	WeatherProvider string
	WeatherAPIKey   string
	WeatherCacheTTL time.Duration

	// Worker
	WorkerInterval      time.Duration
	DustRefreshInterval time.Duration

	// Application
	HTTPAddr       string
	LogLevel       string
	LogFile        string
	LogMaxAgeDays  int
	TimeoutSeconds int
	Timeout        time.Duration
}

func Load() (*Config, error) {
	// .env 파일이 없으면 환경 변수만 사용
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	timeoutSeconds, _ := strconv.Atoi(getEnv("TIMEOUT_SECONDS", "30"))
	logMaxAge, _ := strconv.Atoi(getEnv("LOG_MAX_AGE_DAYS", "7"))

	return &Config{
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "5432"),
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", "password"),
		DBName:              getEnv("DB_NAME", "solar_sync"),
		DBEnabled:           getBool("DB_ENABLED", false),
		RedisHost:           getEnv("REDIS_HOST", "localhost"),
		RedisPort:           getEnv("REDIS_PORT", "6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             redisDB,
		RedisPrefix:         getEnv("REDIS_PREFIX", "solar"),
		MQTTBroker:          getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:        getEnv("MQTT_CLIENT_ID", "SOLAR_SYNC_BRIDGE"),
		MQTTUsername:        getEnv("MQTT_USERNAME", ""),
		MQTTPassword:        getEnv("MQTT_PASSWORD", ""),
		MQTTTopicPrefix:     getEnv("MQTT_TOPIC_PREFIX", "solar"),
		MQTTEmbedded:        getBool("MQTT_EMBEDDED", false),
		MQTTEmbeddedAddr:    getEnv("MQTT_EMBEDDED_ADDR", ":1883"),
		InfluxURL:           getEnv("INFLUXDB_URL", ""),
		InfluxToken:         getEnv("INFLUXDB_TOKEN", ""),
		InfluxDatabase:      getEnv("INFLUXDB_DATABASE", "solar_telemetry"),
		WeatherProvider:     getEnv("WEATHER_PROVIDER", "openweathermap"),
		WeatherAPIKey:       getEnv("WEATHER_API_KEY", ""),
		WeatherCacheTTL:     getDuration("WEATHER_CACHE_TTL", 10*time.Minute),
		WorkerInterval:      getDuration("WORKER_INTERVAL", time.Minute),
		DustRefreshInterval: getDuration("DUST_REFRESH_INTERVAL", 30*time.Minute),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFile:             getEnv("LOG_FILE", ""),
		LogMaxAgeDays:       logMaxAge,
		TimeoutSeconds:      timeoutSeconds,
		Timeout:             time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
