package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	appErr "github.com/samims/hwbot/internal/errors"
)

// Config is loaded once at startup and passed by value afterwards.
type Config struct {
	PracticumToken    string        `env:"PRACTICUM_TOKEN"`
	PracticumEndpoint string        `env:"PRACTICUM_ENDPOINT" env-default:"https://practicum.yandex.ru/api/user_api/homework_statuses/"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" env-default:"10s"`
	RetryPeriod       time.Duration `env:"RETRY_PERIOD" env-default:"600s"`

	TelegramToken       string `env:"TELEGRAM_TOKEN"`
	TelegramChatID      string `env:"TELEGRAM_CHAT_ID"`
	TelegramAPIEndpoint string `env:"TELEGRAM_API_ENDPOINT" env-default:"https://api.telegram.org/bot%s/%s"`

	HTTPAddr string `env:"HTTP_ADDR" env-default:":8080"`
	LogLevel string `env:"LOG_LEVEL" env-default:"debug"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" env-default:"hwbot"`
	Environment  string `env:"ENVIRONMENT" env-default:"development"`
}

// Load reads the process environment. It never fails on missing
// credentials; that is Validate's job.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// MissingConfigError names every required variable that was empty.
type MissingConfigError struct {
	Names []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("required variables not set: %s", strings.Join(e.Names, ", "))
}

func (e *MissingConfigError) Unwrap() error {
	return appErr.ErrMissingConfig
}

// Validate checks the three credentials and the retry period.
func (c Config) Validate() error {
	var missing []string
	for _, v := range []struct {
		name  string
		value string
	}{
		{"PRACTICUM_TOKEN", c.PracticumToken},
		{"TELEGRAM_TOKEN", c.TelegramToken},
		{"TELEGRAM_CHAT_ID", c.TelegramChatID},
	} {
		if strings.TrimSpace(v.value) == "" {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return &MissingConfigError{Names: missing}
	}

	if _, _, err := c.Chat(); err != nil {
		return err
	}
	if c.RetryPeriod <= 0 {
		return fmt.Errorf("%w: RETRY_PERIOD must be positive, got %s", appErr.ErrMissingConfig, c.RetryPeriod)
	}
	return nil
}

// Chat resolves TELEGRAM_CHAT_ID into either a numeric chat id or a
// public channel username starting with '@'.
func (c Config) Chat() (int64, string, error) {
	raw := strings.TrimSpace(c.TelegramChatID)
	if strings.HasPrefix(raw, "@") && len(raw) > 1 {
		return 0, raw, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: TELEGRAM_CHAT_ID %q is neither a chat id nor a @channel", appErr.ErrMissingConfig, raw)
	}
	return id, "", nil
}
