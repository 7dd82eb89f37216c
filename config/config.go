package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port          int
	DBPath        string
	ReadTimeout   int // seconds
	WriteTimeout  int // seconds
	ControlSocket string
}

func Load() *Config {
	cfg := &Config{
		Port:          3216,
		DBPath:        "dmsg.db",
		ReadTimeout:   120,
		WriteTimeout:  30,
		ControlSocket: "/tmp/dmsg.sock",
	}

	if portStr := os.Getenv("DMSG_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Port = port
		}
	}

	if dbPath := os.Getenv("DMSG_DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	if timeoutStr := os.Getenv("DMSG_READ_TIMEOUT"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.ReadTimeout = timeout
		}
	}

	if timeoutStr := os.Getenv("DMSG_WRITE_TIMEOUT"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.WriteTimeout = timeout
		}
	}

	if socketPath := os.Getenv("DMSG_CONTROL_SOCKET"); socketPath != "" {
		cfg.ControlSocket = socketPath
	}

	return cfg
}
