package main

import (
	"fmt"
	"time"

	"support-chat/domain"
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress     string        `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	APIBaseURL        string        `env:"CHAT_API_URL,default=http://localhost:8080"`
	Nickname          string        `env:"CHAT_NICKNAME,required=true"`
	Role              string        `env:"CHAT_ROLE,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	FrameBufferSize   int           `env:"FRAME_BUFFER_SIZE,default=64"`
	CommandBufferSize int           `env:"COMMAND_BUFFER_SIZE,default=16"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT,default=10s"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL,default=30s"`
	Colours           bool          `env:"CHAT_COLOURS,default=true"`
}

// UserRole parses and checks the configured role.
func (c Config) UserRole() (domain.Role, error) {
	role := domain.Role(c.Role)
	if !role.Valid() {
		return "", fmt.Errorf("CHAT_ROLE must be REGULAR, ENGINEER or ADMIN, got %q", c.Role)
	}
	return role, nil
}
