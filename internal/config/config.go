// Package config provides configuration loading and management for the edap server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/edap/edap-server/internal/telemetry"
)

// EnvPrefix is the prefix of every environment variable read by the server.
const EnvPrefix = "EDAP"

const (
	// StoreTypeMemory keeps all data in process memory
	StoreTypeMemory = "memory"
	// StoreTypeRedis persists data in Redis
	StoreTypeRedis = "redis"
)

const (
	// CredentialsBackendKV stores credentials as plain JSON in the key-value store
	CredentialsBackendKV = "kv"
	// CredentialsBackendSealed encrypts credentials before writing them to the key-value store
	CredentialsBackendSealed = "sealed"
	// CredentialsBackendVault stores credentials in a HashiCorp Vault KV v2 engine
	CredentialsBackendVault = "vault"
	// CredentialsBackendKeyring stores credentials in the operating system keyring
	CredentialsBackendKeyring = "keyring"
)

const (
	// SinkLog writes notifications to the log only
	SinkLog = "log"
	// SinkFCM delivers notifications through Firebase Cloud Messaging
	SinkFCM = "fcm"
	// SinkNone drops notifications
	SinkNone = "none"
)

const (
	// ConnectorFile reads snapshots from local JSON fixtures
	ConnectorFile = "file"
	// ConnectorHTTP talks to a remote scraper service
	ConnectorHTTP = "http"
)

// Defaults applied when a value is left empty.
const (
	DefaultAddress        = ":8080"
	DefaultRequestTimeout = 30 * time.Second
	DefaultMinSyncDelay   = 30 * time.Minute
	DefaultMaxSyncDelay   = 60 * time.Minute
	DefaultFetchTimeout   = 2 * time.Minute
	DefaultVaultMount     = "secret"
	DefaultKeyringService = "edap-server"
	DefaultLanguage       = "en"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Store         StoreConfig         `yaml:"store"`
	Credentials   CredentialsConfig   `yaml:"credentials"`
	Sync          SyncConfig          `yaml:"sync"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Connector     ConnectorConfig     `yaml:"connector"`
	Alerts        AlertsConfig        `yaml:"alerts"`
	Logging       LoggingConfig       `yaml:"logging"`

	// Admin enables the /admin routes when set
	Admin *AdminConfig `yaml:"admin,omitempty"`

	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Address        string `yaml:"address,omitempty"`
	RequestTimeout string `yaml:"requestTimeout,omitempty"`
}

// StoreConfig selects the key-value backend
type StoreConfig struct {
	// Type is either "memory" or "redis". Defaults to memory.
	Type  string       `yaml:"type,omitempty"`
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	DB       int    `yaml:"db,omitempty"`

	// PasswordFile is the path to a file containing the Redis password.
	// EDAP_REDIS_PASSWORD is used when it is empty.
	PasswordFile string `yaml:"passwordFile,omitempty"`
}

// CredentialsConfig selects where user credentials live
type CredentialsConfig struct {
	Backend string         `yaml:"backend,omitempty"`
	Sealed  *SealedConfig  `yaml:"sealed,omitempty"`
	Vault   *VaultConfig   `yaml:"vault,omitempty"`
	Keyring *KeyringConfig `yaml:"keyring,omitempty"`
}

// SealedConfig configures at-rest encryption of credentials
type SealedConfig struct {
	// KeyFile contains the master secret. EDAP_SEAL_KEY is used when it is empty.
	KeyFile string `yaml:"keyFile,omitempty"`
	// Salt is mixed into the key derivation. Changing it makes stored credentials unreadable.
	Salt string `yaml:"salt"`
}

// VaultConfig configures the HashiCorp Vault backend
type VaultConfig struct {
	Address string `yaml:"address"`
	// Mount is the KV v2 mount path. Defaults to "secret".
	Mount string `yaml:"mount,omitempty"`

	// ReadTokenFile and WriteTokenFile hold the tokens used for reads and for
	// writes/deletes. EDAP_VAULT_READ_TOKEN and EDAP_VAULT_WRITE_TOKEN are used
	// when they are empty.
	ReadTokenFile  string `yaml:"readTokenFile,omitempty"`
	WriteTokenFile string `yaml:"writeTokenFile,omitempty"`
}

// KeyringConfig configures the OS keyring backend
type KeyringConfig struct {
	Service string `yaml:"service,omitempty"`
}

// SyncConfig controls the background sync workers
type SyncConfig struct {
	MinDelay     string `yaml:"minDelay,omitempty"`
	MaxDelay     string `yaml:"maxDelay,omitempty"`
	FetchTimeout string `yaml:"fetchTimeout,omitempty"`
}

// NotificationsConfig selects the push transport
type NotificationsConfig struct {
	// Sink is "log", "fcm" or "none". Defaults to log.
	Sink            string     `yaml:"sink,omitempty"`
	DefaultLanguage string     `yaml:"defaultLanguage,omitempty"`
	FCM             *FCMConfig `yaml:"fcm,omitempty"`
}

// FCMConfig configures Firebase Cloud Messaging
type FCMConfig struct {
	ProjectID       string `yaml:"projectId,omitempty"`
	CredentialsFile string `yaml:"credentialsFile"`
}

// ConnectorConfig selects the upstream data source
type ConnectorConfig struct {
	Type string               `yaml:"type"`
	File *FileConnectorConfig `yaml:"file,omitempty"`
	HTTP *HTTPConnectorConfig `yaml:"http,omitempty"`
}

// FileConnectorConfig points at a directory of JSON fixtures
type FileConnectorConfig struct {
	Dir string `yaml:"dir"`
}

// HTTPConnectorConfig points at a scraper service
type HTTPConnectorConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// AlertsConfig configures operator alerts
type AlertsConfig struct {
	Telegram *TelegramConfig `yaml:"telegram,omitempty"`
}

// TelegramConfig configures alerts sent through a Telegram bot
type TelegramConfig struct {
	// BotTokenFile contains the bot token. EDAP_TELEGRAM_TOKEN is used when it is empty.
	BotTokenFile string `yaml:"botTokenFile,omitempty"`
	ChatID       string `yaml:"chatId"`
	APIURL       string `yaml:"apiUrl,omitempty"`
}

// AdminConfig protects the operator endpoints with basic auth
type AdminConfig struct {
	Username string `yaml:"username"`
	// PasswordHash is a bcrypt hash of the admin password
	PasswordHash string `yaml:"passwordHash"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	// File enables a rotating log file in addition to stderr
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"maxSizeMB,omitempty"`
	MaxBackups int    `yaml:"maxBackups,omitempty"`
	MaxAgeDays int    `yaml:"maxAgeDays,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error
	if _, err := parseDuration(c.Server.RequestTimeout, DefaultRequestTimeout); err != nil {
		errs = append(errs, fmt.Errorf("server.requestTimeout: %w", err))
	}
	errs = append(errs,
		c.Store.validate(),
		c.Credentials.validate(c.Store),
		c.Sync.validate(),
		c.Notifications.validate(),
		c.Connector.validate(),
		c.Alerts.validate(),
		c.Admin.validate(),
		c.Telemetry.Validate(),
	)
	return errors.Join(errs...)
}

// GetAddress returns the listen address, using the default if not specified
func (s ServerConfig) GetAddress() string {
	if s.Address == "" {
		return DefaultAddress
	}
	return s.Address
}

// GetRequestTimeout returns the per-request timeout
func (s ServerConfig) GetRequestTimeout() time.Duration {
	d, _ := parseDuration(s.RequestTimeout, DefaultRequestTimeout)
	return d
}

// GetType returns the store type, defaulting to memory
func (s StoreConfig) GetType() string {
	if s.Type == "" {
		return StoreTypeMemory
	}
	return s.Type
}

func (s StoreConfig) validate() error {
	switch s.GetType() {
	case StoreTypeMemory:
		return nil
	case StoreTypeRedis:
		if s.Redis == nil || s.Redis.Addr == "" {
			return fmt.Errorf("store: redis.addr is required when type is redis")
		}
		return nil
	default:
		return fmt.Errorf("store: type must be %s or %s, got %s", StoreTypeMemory, StoreTypeRedis, s.Type)
	}
}

// GetPassword returns the Redis password from PasswordFile or EDAP_REDIS_PASSWORD.
// An empty password is valid.
func (r *RedisConfig) GetPassword() (string, error) {
	return secretFromFileOrEnv(r.PasswordFile, EnvPrefix+"_REDIS_PASSWORD", false)
}

// GetBackend returns the credentials backend, defaulting to kv
func (c CredentialsConfig) GetBackend() string {
	if c.Backend == "" {
		return CredentialsBackendKV
	}
	return c.Backend
}

func (c CredentialsConfig) validate(store StoreConfig) error {
	switch c.GetBackend() {
	case CredentialsBackendKV:
		return nil
	case CredentialsBackendSealed:
		if c.Sealed == nil || c.Sealed.Salt == "" {
			return fmt.Errorf("credentials: sealed.salt is required for the sealed backend")
		}
		return nil
	case CredentialsBackendVault:
		if c.Vault == nil || c.Vault.Address == "" {
			return fmt.Errorf("credentials: vault.address is required for the vault backend")
		}
		return nil
	case CredentialsBackendKeyring:
		if store.GetType() == StoreTypeRedis {
			// profiles would outlive the host keyring they depend on
			return fmt.Errorf("credentials: keyring backend cannot be combined with a redis store")
		}
		return nil
	default:
		return fmt.Errorf("credentials: unknown backend %s", c.Backend)
	}
}

// GetKey returns the sealing master secret from KeyFile or EDAP_SEAL_KEY
func (s *SealedConfig) GetKey() (string, error) {
	return secretFromFileOrEnv(s.KeyFile, EnvPrefix+"_SEAL_KEY", true)
}

// GetMount returns the KV v2 mount, defaulting to "secret"
func (v *VaultConfig) GetMount() string {
	if v.Mount == "" {
		return DefaultVaultMount
	}
	return strings.Trim(v.Mount, "/")
}

// GetReadToken returns the Vault token used for reads
func (v *VaultConfig) GetReadToken() (string, error) {
	return secretFromFileOrEnv(v.ReadTokenFile, EnvPrefix+"_VAULT_READ_TOKEN", true)
}

// GetWriteToken returns the Vault token used for writes and deletes
func (v *VaultConfig) GetWriteToken() (string, error) {
	return secretFromFileOrEnv(v.WriteTokenFile, EnvPrefix+"_VAULT_WRITE_TOKEN", true)
}

// GetService returns the keyring service name
func (k *KeyringConfig) GetService() string {
	if k == nil || k.Service == "" {
		return DefaultKeyringService
	}
	return k.Service
}

// GetMinDelay returns the lower bound of the randomized sync interval
func (s SyncConfig) GetMinDelay() time.Duration {
	d, _ := parseDuration(s.MinDelay, DefaultMinSyncDelay)
	return d
}

// GetMaxDelay returns the upper bound of the randomized sync interval
func (s SyncConfig) GetMaxDelay() time.Duration {
	d, _ := parseDuration(s.MaxDelay, DefaultMaxSyncDelay)
	return d
}

// GetFetchTimeout returns the deadline for one upstream fetch
func (s SyncConfig) GetFetchTimeout() time.Duration {
	d, _ := parseDuration(s.FetchTimeout, DefaultFetchTimeout)
	return d
}

func (s SyncConfig) validate() error {
	var errs []error
	for name, v := range map[string]string{
		"minDelay":     s.MinDelay,
		"maxDelay":     s.MaxDelay,
		"fetchTimeout": s.FetchTimeout,
	} {
		d, err := parseDuration(v, time.Second)
		if err != nil {
			errs = append(errs, fmt.Errorf("sync.%s must be a valid duration (e.g., '30m', '1h'): %w", name, err))
			continue
		}
		if d <= 0 {
			errs = append(errs, fmt.Errorf("sync.%s must be positive", name))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if s.GetMinDelay() > s.GetMaxDelay() {
		return fmt.Errorf("sync.minDelay (%s) must not exceed sync.maxDelay (%s)", s.GetMinDelay(), s.GetMaxDelay())
	}
	return nil
}

// GetSink returns the notification sink, defaulting to log
func (n NotificationsConfig) GetSink() string {
	if n.Sink == "" {
		return SinkLog
	}
	return n.Sink
}

// GetDefaultLanguage returns the language used when a profile has none
func (n NotificationsConfig) GetDefaultLanguage() string {
	if n.DefaultLanguage == "" {
		return DefaultLanguage
	}
	return n.DefaultLanguage
}

func (n NotificationsConfig) validate() error {
	switch n.GetSink() {
	case SinkLog, SinkNone:
		return nil
	case SinkFCM:
		if n.FCM == nil || n.FCM.CredentialsFile == "" {
			return fmt.Errorf("notifications: fcm.credentialsFile is required for the fcm sink")
		}
		return nil
	default:
		return fmt.Errorf("notifications: unknown sink %s", n.Sink)
	}
}

func (c ConnectorConfig) validate() error {
	switch c.Type {
	case ConnectorFile:
		if c.File == nil || c.File.Dir == "" {
			return fmt.Errorf("connector: file.dir is required")
		}
	case ConnectorHTTP:
		if c.HTTP == nil || c.HTTP.Endpoint == "" {
			return fmt.Errorf("connector: http.endpoint is required")
		}
	case "":
		return fmt.Errorf("connector: type is required")
	default:
		return fmt.Errorf("connector: type must be %s or %s, got %s", ConnectorFile, ConnectorHTTP, c.Type)
	}
	return nil
}

func (a AlertsConfig) validate() error {
	if a.Telegram != nil && a.Telegram.ChatID == "" {
		return fmt.Errorf("alerts: telegram.chatId is required")
	}
	return nil
}

// GetBotToken returns the Telegram bot token
func (t *TelegramConfig) GetBotToken() (string, error) {
	return secretFromFileOrEnv(t.BotTokenFile, EnvPrefix+"_TELEGRAM_TOKEN", true)
}

func (a *AdminConfig) validate() error {
	if a == nil {
		return nil
	}
	if a.Username == "" || a.PasswordHash == "" {
		return fmt.Errorf("admin: username and passwordHash are required")
	}
	return nil
}

func parseDuration(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, err
	}
	return d, nil
}

// secretFromFileOrEnv reads a secret from path if set, then from the env var.
func secretFromFileOrEnv(path, env string, required bool) (string, error) {
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return "", fmt.Errorf("failed to read secret from file %s: %w", path, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if v := os.Getenv(env); v != "" {
		return v, nil
	}

	if required {
		return "", fmt.Errorf("no secret configured: set a file path or the %s environment variable", env)
	}
	return "", nil
}
