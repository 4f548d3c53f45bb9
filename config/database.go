package config

// DBConfig contains PostgreSQL database configuration for the durable job store.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"scanpipe"`
	Password string `env:"PASSWORD" envDefault:"scanpipe"`
	Name     string `env:"NAME"     envDefault:"scanpipe"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`

	// AdminUser/AdminPassword carry operational credentials kept separate from
	// the runtime role's. Nothing in this module reads them: migrations run
	// over the runtime User/Password connection.
	AdminUser     string `env:"ADMIN_USER"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// QueueConfig contains Redis connection settings for the jobs/results message bus.
type QueueConfig struct {
	Addr           string `env:"ADDR"             envDefault:"localhost:6379"`
	Password       string `env:"PASSWORD"         envDefault:""`
	DB             int    `env:"DB"               envDefault:"0"`
	MaxMessageSize int    `env:"MAX_MESSAGE_SIZE" envDefault:"262144"`
}

// Sanitize applies guardrails to queue configuration values.
func (c *QueueConfig) Sanitize() {
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 262144
	}
}
