package shared

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

const (
	DriverMySQL     = "mysql"
	DriverFirestore = "firestore"
	DriverMemory    = "memory"
)

type Config struct {
	AppEnv      string `envconfig:"APP_ENV" default:"prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9100"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"mysql"`
	MySQLDSN    string `envconfig:"MYSQL_DSN" default:"root:root@tcp(localhost:3306)/hotel?parseTime=true&charset=utf8mb4,utf8&loc=UTC"`
	// Firestore is used when STORE_DRIVER=firestore. An empty credentials
	// path means application default credentials (or the emulator).
	FirestoreProject     string `envconfig:"FIRESTORE_PROJECT"`
	FirestoreCredentials string `envconfig:"FIRESTORE_CREDENTIALS"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPass string `envconfig:"REDIS_PASSWORD"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`

	CacheTTLSeconds int           `envconfig:"CACHE_TTL_SECONDS" default:"900"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	RateLimitRPS    float64       `envconfig:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"40"`

	MigrateWorkers int `envconfig:"MIGRATE_WORKERS" default:"8"`
}

func (c Config) CacheTTL() time.Duration { return time.Duration(c.CacheTTLSeconds) * time.Second }

// Load reads the environment and checks the combinations envconfig cannot.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, errors.Wrap(err, "process env config")
	}
	switch c.StoreDriver {
	case DriverMySQL, DriverMemory:
	case DriverFirestore:
		if c.FirestoreProject == "" {
			return Config{}, errors.New("FIRESTORE_PROJECT is required when STORE_DRIVER=firestore")
		}
	default:
		return Config{}, errors.Newf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.MigrateWorkers < 1 {
		c.MigrateWorkers = 1
	}
	if c.RateLimitRPS <= 0 {
		log.Warn().Float64("rps", c.RateLimitRPS).Msg("rate limiting disabled")
	}
	return c, nil
}
