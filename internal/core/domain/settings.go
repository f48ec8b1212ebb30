package domain

const unknownDescription = "Unknown"

// StoreBackend selects the Permission Store implementation.
type StoreBackend string

// Available store backends.
const (
	StoreBackendSQLite   StoreBackend = "sqlite"
	StoreBackendPostgres StoreBackend = "postgres"
	StoreBackendMemory   StoreBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreBackendSQLite, StoreBackendPostgres, StoreBackendMemory:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the backend.
func (b StoreBackend) Description() string {
	switch b {
	case StoreBackendSQLite:
		return "SQLite (embedded file)"
	case StoreBackendPostgres:
		return "PostgreSQL"
	case StoreBackendMemory:
		return "In-memory (non persistent)"
	default:
		return unknownDescription
	}
}

// CacheBackend selects the ancestor cache implementation.
type CacheBackend string

// Available cache backends.
const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
)

// IsValid returns true if the backend is recognised.
func (b CacheBackend) IsValid() bool {
	switch b {
	case CacheBackendMemory, CacheBackendRedis:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the backend.
func (b CacheBackend) Description() string {
	switch b {
	case CacheBackendMemory:
		return "Process memory"
	case CacheBackendRedis:
		return "Redis (shared)"
	default:
		return unknownDescription
	}
}

// AppSettings is the resolved application configuration.
type AppSettings struct {
	Store     StoreSettings
	Cache     CacheSettings
	Workflow  WorkflowSettings
	Broker    BrokerSettings
	Webhooks  WebhookSettings
	Server    ServerSettings
	Intercom  IntercomSettings
	Scheduler SchedulerConfig
	Verbose   bool
}

// StoreSettings configures the Permission Store.
type StoreSettings struct {
	Backend     StoreBackend
	DataDir     string
	PostgresDSN string
}

// CacheSettings configures the ancestor cache.
type CacheSettings struct {
	Backend       CacheBackend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

// WorkflowSettings configures the Kafka-backed workflow client.
type WorkflowSettings struct {
	Brokers []string
	Topic   string
}

// BrokerSettings configures the OAuth connection broker.
type BrokerSettings struct {
	URL       string
	SecretKey string

	// ProviderConfigKeys maps providers to their integration key on the broker.
	ProviderConfigKeys map[ProviderType]string
}

// WebhookSettings configures provider push notifications.
type WebhookSettings struct {
	PublicURL string
	Secret    string
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr string
}

// IntercomSettings configures the Intercom API client.
type IntercomSettings struct {
	BaseURL    string
	APIVersion string
}

// DefaultAppSettings returns the settings used when nothing is configured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Store: StoreSettings{Backend: StoreBackendSQLite},
		Cache: CacheSettings{Backend: CacheBackendMemory, KeyPrefix: "permsync"},
		Workflow: WorkflowSettings{
			Brokers: []string{"localhost:9092"},
			Topic:   "connector-sync",
		},
		Broker: BrokerSettings{
			ProviderConfigKeys: map[ProviderType]string{
				ProviderIntercom:    "intercom",
				ProviderGoogleDrive: "google-drive",
			},
		},
		Server: ServerSettings{Addr: ":8080"},
		Intercom: IntercomSettings{
			BaseURL:    "https://api.intercom.io",
			APIVersion: "2.10",
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}
