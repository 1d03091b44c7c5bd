package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env    string `env:"ENV" env-default:"local"`
	Log    Log
	MySQL  MySQL
	Redis  Redis
	Stress Stress
}

type Log struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
}

type MySQL struct {
	DSN          string `env:"MYSQL_DSN" env-default:"root:root@tcp(localhost:3306)/ledger?parseTime=true"`
	MaxOpenConns int    `env:"MYSQL_MAX_OPEN_CONNS" env-default:"50"`
	MaxIdleConns int    `env:"MYSQL_MAX_IDLE_CONNS" env-default:"25"`
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	PoolSize int    `env:"REDIS_POOL_SIZE" env-default:"100"`
}

type Stress struct {
	InitialStock  int64 `env:"STRESS_INITIAL_STOCK" env-default:"20"`
	TotalRequests int   `env:"STRESS_TOTAL_REQUESTS" env-default:"50"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return &cfg, nil
}
