package model

import "time"

// ----------------------------------------------------
// ================ Config ================

// LogConfig holds logger configuration
type LogConfig struct {
	Level      string `envconfig:"LEVEL" default:"info"`
	Format     string `envconfig:"FORMAT" default:"console"` // console, json
	Output     string `envconfig:"OUTPUT" default:"stderr"`  // stdout, stderr, file
	TimeFormat string `envconfig:"TIME_FORMAT" default:"rfc3339"`
	FilePath   string `envconfig:"FILE_PATH" default:"logs/onboard.log"`
}

// StorageConfig selects and configures the draft persistence surface
type StorageConfig struct {
	Backend    string        `envconfig:"BACKEND" default:"sqlite"` // memory, file, redis, sqlite
	RedisURL   string        `envconfig:"REDIS_URL"`
	KeyPrefix  string        `envconfig:"KEY_PREFIX" default:"draft:"`
	TTL        time.Duration `envconfig:"TTL" default:"168h"`
	SQLitePath string        `envconfig:"SQLITE_PATH" default:"data/drafts.db"`
	FileDir    string        `envconfig:"FILE_DIR" default:"data/drafts"`
}

// RPCConfig holds the remote procedure endpoint used by the balance service
type RPCConfig struct {
	BaseURL          string        `envconfig:"BASE_URL"`
	APIKey           string        `envconfig:"API_KEY"`
	Timeout          time.Duration `envconfig:"TIMEOUT" default:"10s"`
	BalanceProcedure string        `envconfig:"BALANCE_PROCEDURE" default:"get_account_balance"`
}

// PollConfig holds the balance refresh period
type PollConfig struct {
	Interval time.Duration `envconfig:"INTERVAL" default:"30s"`
}
