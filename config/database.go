package config

import "time"

// DBConfig contains Postgres configuration for the optional job history
// repository. History is disabled when Host is empty.
type DBConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"photomesh"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"photomesh"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`

	// RunMigrationsOnStart applies embedded migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS" envDefault:"true"`
}

// Enabled reports whether a history database is configured.
func (d DBConfig) Enabled() bool {
	return d.Host != ""
}

// RedisConfig contains Redis configuration for the optional terminal
// snapshot cache. The cache is disabled when Addr is empty.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`

	// SnapshotTTL bounds how long terminal snapshots stay cached.
	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL" envDefault:"24h"`
}

// Enabled reports whether a snapshot cache is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}
