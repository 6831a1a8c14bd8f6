package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = ""
	defaultEnv           = "local"
	defaultConfigDir     = ".savesync"

	BackendHTTP   = "http"
	BackendMinio  = "minio"
	BackendMemory = "memory"
)

type Minio struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

type Sync struct {
	Interval       time.Duration
	BatchSize      int
	MaxRetries     int
	RetryBaseDelay time.Duration
	ConflictPolicy string
}

type AutoSave struct {
	Enabled     bool
	Interval    time.Duration
	MinGap      time.Duration
	Slot        int
	Backup      bool
	CloudMirror bool
	Triggers    []string
}

type Config struct {
	Env            string
	ServerAddress  string
	EnableTLS      bool
	RequestTimeout time.Duration
	LogLevel       string
	ConfigDir      string
	TokenPath      string
	StatePath      string
	StorePath      string
	SavesPath      string
	RemoteBackend  string
	Minio          Minio
	MaxSlots       int
	ProbeInterval  time.Duration
	ChangeTTL      time.Duration
	Sync           Sync
	AutoSave       AutoSave
}

// MustLoad загружает конфигурацию клиента из .env, окружения и файла конфигурации, если он подключен к viper.
func MustLoad() *Config {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	cfg, err := Load(viper.GetViper())
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}

	if err := os.MkdirAll(cfg.ConfigDir, 0700); err != nil {
		fmt.Printf("Ошибка создания директории конфигурации: %v\n", err)
	}

	return cfg
}

// Load читает конфигурацию из v без побочных эффектов на файловую систему.
func Load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	setDefaults(v)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := v.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	cfg := &Config{
		Env:            v.GetString("APP_ENV"),
		ServerAddress:  v.GetString("SERVER_ADDRESS"),
		EnableTLS:      v.GetBool("ENABLE_TLS"),
		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		ConfigDir:      configDir,
		TokenPath:      filepath.Join(configDir, "token"),
		StatePath:      filepath.Join(configDir, "state.json"),
		StorePath:      filepath.Join(configDir, "store"),
		SavesPath:      filepath.Join(configDir, "saves.db"),
		RemoteBackend:  strings.ToLower(v.GetString("REMOTE_BACKEND")),
		Minio: Minio{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Region:    v.GetString("MINIO_REGION"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
		MaxSlots:      v.GetInt("MAX_SLOTS"),
		ProbeInterval: v.GetDuration("PROBE_INTERVAL"),
		ChangeTTL:     v.GetDuration("CHANGE_TTL"),
		Sync: Sync{
			Interval:       v.GetDuration("SYNC_INTERVAL"),
			BatchSize:      v.GetInt("SYNC_BATCH_SIZE"),
			MaxRetries:     v.GetInt("SYNC_MAX_RETRIES"),
			RetryBaseDelay: v.GetDuration("SYNC_RETRY_BASE_DELAY"),
			ConflictPolicy: v.GetString("CONFLICT_POLICY"),
		},
		AutoSave: AutoSave{
			Enabled:     v.GetBool("AUTOSAVE_ENABLED"),
			Interval:    v.GetDuration("AUTOSAVE_INTERVAL"),
			MinGap:      v.GetDuration("AUTOSAVE_MIN_GAP"),
			Slot:        v.GetInt("AUTOSAVE_SLOT"),
			Backup:      v.GetBool("AUTOSAVE_BACKUP"),
			CloudMirror: v.GetBool("AUTOSAVE_CLOUD_MIRROR"),
			Triggers:    splitList(v.GetString("AUTOSAVE_TRIGGERS")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", defaultEnv)
	v.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("ENABLE_TLS", false)
	v.SetDefault("REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("CONFIG_DIR", defaultConfigDir)
	v.SetDefault("REMOTE_BACKEND", BackendHTTP)
	v.SetDefault("MINIO_BUCKET", "savesync")
	v.SetDefault("MINIO_REGION", "us-east-1")
	v.SetDefault("MAX_SLOTS", 5)
	v.SetDefault("PROBE_INTERVAL", 30*time.Second)
	v.SetDefault("CHANGE_TTL", 30*24*time.Hour)
	v.SetDefault("SYNC_INTERVAL", 5*time.Minute)
	v.SetDefault("SYNC_BATCH_SIZE", 10)
	v.SetDefault("SYNC_MAX_RETRIES", 3)
	v.SetDefault("SYNC_RETRY_BASE_DELAY", time.Second)
	v.SetDefault("CONFLICT_POLICY", "newest")
	v.SetDefault("AUTOSAVE_ENABLED", true)
	v.SetDefault("AUTOSAVE_INTERVAL", 2*time.Minute)
	v.SetDefault("AUTOSAVE_MIN_GAP", 30*time.Second)
	v.SetDefault("AUTOSAVE_SLOT", 0)
	v.SetDefault("AUTOSAVE_BACKUP", true)
	v.SetDefault("AUTOSAVE_CLOUD_MIRROR", true)
	v.SetDefault("AUTOSAVE_TRIGGERS", "")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) validate() error {
	switch c.RemoteBackend {
	case BackendHTTP:
		if c.ServerAddress == "" {
			return fmt.Errorf("server_address не может быть пустым")
		}
	case BackendMinio:
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" {
			return fmt.Errorf("для minio нужны minio_endpoint и minio_bucket")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("неизвестный remote_backend %q", c.RemoteBackend)
	}
	if c.MaxSlots <= 0 {
		return fmt.Errorf("max_slots должен быть больше нуля")
	}
	if c.AutoSave.Slot < 0 {
		return fmt.Errorf("autosave_slot не может быть отрицательным")
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}
