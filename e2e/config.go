package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_STEP_TIMEOUT bounds every polling assertion
	StepTimeout  time.Duration `envconfig:"E2E_STEP_TIMEOUT" default:"5s"`
	PollInterval time.Duration `envconfig:"E2E_POLL_INTERVAL" default:"20ms"`
	// E2E_LOG_LEVEL raises client logging when a scenario needs tracing
	LogLevel      string `envconfig:"E2E_LOG_LEVEL" default:"ERROR"`
	FrameBuffer   int    `envconfig:"E2E_FRAME_BUFFER" default:"64"`
	CommandBuffer int    `envconfig:"E2E_COMMAND_BUFFER" default:"16"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
