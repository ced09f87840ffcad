package coldrun

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the single immutable configuration structure shared by the
// orchestrator, worker adapter, and idle detector processes. It is built
// once at startup by LoadConfig and never mutated afterward.
type Config struct {
	// QueueURL is the endpoint of the work queue (C2).
	QueueURL string
	// RegistryTable names the job registry backend (C1), e.g. a Postgres
	// DSN or table identifier depending on the chosen store.
	RegistryTable string
	// HostID identifies the compute host controlled by the host
	// controller (C3).
	HostID string

	// VisibilityTimeout (V) is how long a received message stays leased
	// before the queue redelivers it. Default 300s.
	VisibilityTimeout time.Duration
	// ReceiveWait (W) is the long-poll wait when receiving from the
	// queue. Default 20s.
	ReceiveWait time.Duration
	// PollInterval (P) is how often the adapter polls the inference
	// engine for status. Default 2s.
	PollInterval time.Duration
	// JobDeadline (D) bounds total worker-side effort per job. Default 600s.
	JobDeadline time.Duration
	// MaxReceives (R) is the delivery count after which a message is
	// diverted to the dead-letter sink. Default 3.
	MaxReceives int
	// IdleSample (T_sample) is how often the idle detector samples queue
	// depth. Default 300s.
	IdleSample time.Duration
	// IdlePeriods (N) is the number of consecutive zero-depth samples
	// required to fire a shutdown. Default 6.
	IdlePeriods int

	// CORSOrigins lists origins allowed to call the orchestrator's HTTP
	// API. Empty disables CORS handling entirely.
	CORSOrigins []string
}

// DefaultConfig returns a Config with the defaults named in the
// configuration surface: V=300s, W=20s, P=2s, D=600s, R=3,
// T_sample=300s, N=6.
func DefaultConfig() Config {
	return Config{
		VisibilityTimeout: 300 * time.Second,
		ReceiveWait:       20 * time.Second,
		PollInterval:      2 * time.Second,
		JobDeadline:       600 * time.Second,
		MaxReceives:       3,
		IdleSample:        300 * time.Second,
		IdlePeriods:       6,
	}
}

// Option mutates a Config during LoadConfig.
type Option func(*Config)

// WithEnvFile loads additional environment variables from the named file
// before reading the configuration surface. Missing files are ignored,
// matching godotenv's convention for optional local overrides.
func WithEnvFile(path string) Option {
	return func(_ *Config) {
		_ = godotenv.Load(path) // best-effort; absence is not an error
	}
}

// LoadConfig builds a Config from the environment, enumerated in the
// configuration surface (QUEUE_URL, REGISTRY_TABLE, HOST_ID,
// VISIBILITY_TIMEOUT, RECEIVE_WAIT, POLL_INTERVAL, JOB_DEADLINE,
// MAX_RECEIVES, IDLE_SAMPLE, IDLE_PERIODS, CORS_ORIGINS). Options run
// first so an env file can seed os.Getenv before values are read.
// Unset optional keys fall back to DefaultConfig; malformed values
// return an error rather than panicking.
func LoadConfig(opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.QueueURL = os.Getenv("QUEUE_URL")
	cfg.RegistryTable = os.Getenv("REGISTRY_TABLE")
	cfg.HostID = os.Getenv("HOST_ID")

	var err error
	if cfg.VisibilityTimeout, err = durationEnv("VISIBILITY_TIMEOUT", cfg.VisibilityTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ReceiveWait, err = durationEnv("RECEIVE_WAIT", cfg.ReceiveWait); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = durationEnv("POLL_INTERVAL", cfg.PollInterval); err != nil {
		return Config{}, err
	}
	if cfg.JobDeadline, err = durationEnv("JOB_DEADLINE", cfg.JobDeadline); err != nil {
		return Config{}, err
	}
	if cfg.IdleSample, err = durationEnv("IDLE_SAMPLE", cfg.IdleSample); err != nil {
		return Config{}, err
	}
	if cfg.MaxReceives, err = intEnv("MAX_RECEIVES", cfg.MaxReceives); err != nil {
		return Config{}, err
	}
	if cfg.IdlePeriods, err = intEnv("IDLE_PERIODS", cfg.IdlePeriods); err != nil {
		return Config{}, err
	}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		cfg.CORSOrigins = splitCSV(raw)
	}

	return cfg, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	// Accept bare seconds ("300") as well as Go duration strings ("300s").
	if secs, convErr := strconv.Atoi(raw); convErr == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("coldrun: invalid %s=%q: %w", key, raw, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("coldrun: invalid %s=%q: %w", key, raw, err)
	}
	return n, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
