package types

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Settings drives the behavior of the gateway. Values come from an
// optional YAML file (CONFIG_FILE) overlaid by environment variables;
// env always wins so deployments can patch a single knob.
type Settings struct {
	Port int `yaml:"port"`

	// AllowedNetworks is the trusted network set: CIDR blocks or bare
	// IPs (IPv4/IPv6). Malformed entries are skipped at load with a
	// warning, never fatal.
	AllowedNetworks []string `yaml:"allowed_networks"`

	// RateLimitRequests per RateLimitWindowSeconds per caller identity.
	RateLimitRequests      int `yaml:"rate_limit_requests"`
	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds"`

	// BankPublicKeyFile holds the counterparty's RSA public key (PEM).
	BankPublicKeyFile string `yaml:"bank_public_key_file"`

	// DedupRetentionDays bounds both the persistent index TTL and the
	// in-memory cache rebuilt at startup.
	DedupRetentionDays int `yaml:"dedup_retention_days"`

	// StoreTimeoutMillis bounds every external store call.
	StoreTimeoutMillis int `yaml:"store_timeout_millis"`

	// ForwardSNSArn, when set, forwards successfully processed
	// transactions to the topic (best effort).
	ForwardSNSArn string `yaml:"forward_sns_arn"`

	// AuditFields are JMESPath expressions evaluated against the raw
	// payload and logged per batch.
	AuditFields []string `yaml:"audit_fields"`
}

const (
	EnvConfigFile         = "CONFIG_FILE"
	EnvPort               = "PORT"
	EnvAllowedNetworks    = "ALLOWED_NETWORKS"
	EnvRateLimitRequests  = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow    = "RATE_LIMIT_WINDOW_SECONDS"
	EnvBankPublicKeyFile  = "BANK_PUBLIC_KEY_FILE"
	EnvDedupRetentionDays = "DEDUP_RETENTION_DAYS"
	EnvStoreTimeoutMillis = "STORE_TIMEOUT_MILLIS"
	EnvForwardSNSArn      = "FORWARD_SNS_ARN"
	EnvAuditFields        = "AUDIT_FIELDS"
)

// DefaultSettings mirrors the counterparty agreement: 60 requests per
// 60-second window, 30-day dedup retention.
func DefaultSettings() Settings {
	return Settings{
		Port:                   8443,
		AllowedNetworks:        []string{"127.0.0.1", "::1"},
		RateLimitRequests:      60,
		RateLimitWindowSeconds: 60,
		BankPublicKeyFile:      "certs/bank_public.pem",
		DedupRetentionDays:     30,
		StoreTimeoutMillis:     5000,
	}
}

// LoadSettings builds Settings from defaults, the optional YAML file and
// the environment, in that order.
func LoadSettings() (Settings, error) {
	s := DefaultSettings()
	if path := os.Getenv(EnvConfigFile); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return s, Err(ErrInvalidSettings, err, "reading %s", path)
		}
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return s, Err(ErrInvalidSettings, err, "parsing %s", path)
		}
	}
	s.applyEnv()
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv(EnvPort); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Port = n
		}
	}
	if v := os.Getenv(EnvAllowedNetworks); v != "" {
		s.AllowedNetworks = splitList(v)
	}
	if v := os.Getenv(EnvRateLimitRequests); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.RateLimitRequests = n
		}
	}
	if v := os.Getenv(EnvRateLimitWindow); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.RateLimitWindowSeconds = n
		}
	}
	if v := os.Getenv(EnvBankPublicKeyFile); v != "" {
		s.BankPublicKeyFile = v
	}
	if v := os.Getenv(EnvDedupRetentionDays); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.DedupRetentionDays = n
		}
	}
	if v := os.Getenv(EnvStoreTimeoutMillis); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.StoreTimeoutMillis = n
		}
	}
	if v := os.Getenv(EnvForwardSNSArn); v != "" {
		s.ForwardSNSArn = v
	}
	if v := os.Getenv(EnvAuditFields); v != "" {
		s.AuditFields = splitList(v)
	}
}

func (s Settings) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return Err(ErrInvalidSettings, nil, "port %d out of range", s.Port)
	}
	if s.RateLimitRequests <= 0 {
		return Err(ErrInvalidSettings, nil, "rate_limit_requests must be positive")
	}
	if s.RateLimitWindowSeconds <= 0 {
		return Err(ErrInvalidSettings, nil, "rate_limit_window_seconds must be positive")
	}
	if s.DedupRetentionDays < 1 {
		return Err(ErrInvalidSettings, nil, "dedup_retention_days must be >= 1")
	}
	if s.StoreTimeoutMillis <= 0 {
		return Err(ErrInvalidSettings, nil, "store_timeout_millis must be positive")
	}
	return nil
}

func (s Settings) RateWindow() time.Duration {
	return time.Duration(s.RateLimitWindowSeconds) * time.Second
}

func (s Settings) DedupRetention() time.Duration {
	return time.Duration(s.DedupRetentionDays) * 24 * time.Hour
}

func (s Settings) StoreTimeout() time.Duration {
	return time.Duration(s.StoreTimeoutMillis) * time.Millisecond
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s Settings) String() string {
	return fmt.Sprintf("port=%d networks=%d limit=%d/%ds retention=%dd",
		s.Port, len(s.AllowedNetworks), s.RateLimitRequests, s.RateLimitWindowSeconds, s.DedupRetentionDays)
}
