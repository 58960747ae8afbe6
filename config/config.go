package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"adsync-api"`
	Port                          int      `env:"PORT" env-default:"3000"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Database driver
	DatabaseDriver string `env:"DB_DRIVER" env-default:"postgres"`
	// Database host
	DatabaseHost string `env:"DB_HOST" env-default:""`
	// Database port
	DatabasePort string `env:"DB_PORT" env-default:"5432"`
	// Database user
	DatabaseUserName string `env:"DB_USER_NAME" env-default:""`
	// Database user password
	DatabasePassword string `env:"DB_PASSWORD" env-default:""`
	// Database name
	DatabaseName string `env:"DB_NAME" env-default:"adsync"`
	// Database SSL Mode
	DatabaseSSLMode string `env:"DB_SQL_MODE" env-default:"disable"`
	// Max Open Conns
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	// Migration Folder Path
	DatabaseMigrationFolderPath string `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	// Database Migration Version
	DatabaseMigrationVersion int `env:"DB_MIGRATION_VERSION" env-default:"0"`
	// Database Migration Force
	DatabaseMigrationForce int `env:"DB_MIGRATION_FORCE" env-default:"0"`
	// Database Migration Auto Rollback
	DatabaseMigrationAutoRollback bool `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis host. Empty disables the redis cache backend and the service
	// runs on the in-process fallback store.
	RedisHost string `env:"REDIS_HOST" env-default:""`
	// Redis port
	RedisPort int `env:"REDIS_PORT" env-default:"6379"`
	// Redis password
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	// Redis database number
	RedisDB int `env:"REDIS_DB" env-default:"0"`

	// Graph API base URL
	GraphBaseURL string `env:"GRAPH_BASE_URL" env-default:"https://graph.facebook.com"`
	// Graph API version
	GraphAPIVersion string `env:"GRAPH_API_VERSION" env-default:"v21.0"`
	// Graph app ID
	GraphAppID string `env:"GRAPH_APP_ID" env-default:""`
	// Graph app secret (used for token refresh and webhook signatures)
	GraphAppSecret string `env:"GRAPH_APP_SECRET" env-default:""`
	// Seed long-lived system token. Refreshed proactively and persisted.
	GraphSystemToken string `env:"GRAPH_SYSTEM_TOKEN" env-default:""`
	// Webhook verify token for the subscription handshake
	GraphWebhookVerifyToken string `env:"GRAPH_WEBHOOK_VERIFY_TOKEN" env-default:""`
	// Request timeout for outbound Graph calls
	GraphRequestTimeout time.Duration `env:"GRAPH_REQUEST_TIMEOUT" env-default:"30s"`
	// Max retries for transient Graph failures
	GraphMaxRetries int `env:"GRAPH_MAX_RETRIES" env-default:"3"`
	// Base delay for exponential backoff
	GraphRetryBaseDelay time.Duration `env:"GRAPH_RETRY_BASE_DELAY" env-default:"1s"`
	// Cap on the backoff delay
	GraphRetryMaxDelay time.Duration `env:"GRAPH_RETRY_MAX_DELAY" env-default:"30s"`

	// Scheduled sync enable flag
	SyncEnabled bool `env:"SYNC_ENABLED" env-default:"true"`
	// Insights sync interval
	SyncInsightsInterval time.Duration `env:"SYNC_INSIGHTS_INTERVAL" env-default:"1h"`
	// Account metadata sync interval
	SyncAccountsInterval time.Duration `env:"SYNC_ACCOUNTS_INTERVAL" env-default:"6h"`
	// Campaign metadata sync interval
	SyncCampaignsInterval time.Duration `env:"SYNC_CAMPAIGNS_INTERVAL" env-default:"2h"`
	// Cache cleanup sweep interval
	SyncCacheCleanupInterval time.Duration `env:"SYNC_CACHE_CLEANUP_INTERVAL" env-default:"4h"`
	// Rolling insights window in days
	SyncInsightsWindowDays int `env:"SYNC_INSIGHTS_WINDOW_DAYS" env-default:"7"`
	// Delay inserted between accounts inside a sync batch
	SyncAccountDelay time.Duration `env:"SYNC_ACCOUNT_DELAY" env-default:"2s"`

	// Rate limit defaults for inbound requests
	RateLimitMax                  int           `env:"RATE_LIMIT_MAX" env-default:"60"`
	RateLimitWindow               time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"1m"`
	RateLimitMutatingMax          int           `env:"RATE_LIMIT_MUTATING_MAX" env-default:"10"`
	RequestGuardBlockedIPs        []string      `env:"REQUEST_GUARD_BLOCKED_IPS" env-default:""`
	RequestGuardBlockedUserAgents []string      `env:"REQUEST_GUARD_BLOCKED_USER_AGENTS" env-default:"curl,python-requests,scrapy"`
	AllowedWebOrigins             []string      `env:"ALLOWED_WEB_ORIGINS" env-default:""`

	// Retention window for the security and audit log table. Zero keeps
	// rows forever.
	APILogRetention time.Duration `env:"API_LOG_RETENTION" env-default:"720h"`

	// Kafka brokers (comma-separated)
	KafkaBrokers string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	// Kafka topic for sync lifecycle events
	KafkaSyncEventsTopic string `env:"KAFKA_SYNC_EVENTS_TOPIC" env-default:"adsync-events"`
	// Enable/disable event emission
	KafkaEventsEnabled bool `env:"KAFKA_EVENTS_ENABLED" env-default:"false"`

	// Tracing settings
	// Enable OTLP tracing export (set to true to send traces to collector)
	OTLPEnabled bool `env:"OTLP_ENABLED" env-default:"false"`
	// OTLP collector endpoint
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	// Disable TLS for OTLP (for local development)
	OTLPInsecure bool `env:"OTLP_INSECURE" env-default:"true"`
}
