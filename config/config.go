package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/wfunc/dungeonserver/logger"
)

// EnvPrefix prefixes environment overrides, e.g. DUNGEON_SERVER_TCP_ADDRESS.
const EnvPrefix = "DUNGEON"

// ErrNoConfigFile is returned by Watch when only defaults and env are in use.
var ErrNoConfigFile = errors.New("no config file to watch")

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
	Recorder RecorderConfig `mapstructure:"recorder"`
}

type ServerConfig struct {
	TCPAddress     string        `mapstructure:"tcp_address"`
	WSAddress      string        `mapstructure:"ws_address"`
	RPCAddress     string        `mapstructure:"rpc_address"`
	MetricsAddress string        `mapstructure:"metrics_address"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type GameConfig struct {
	MapFile      string `mapstructure:"map_file"`
	MaxAP        int    `mapstructure:"max_ap"`
	MaxHealth    int    `mapstructure:"max_health"`
	LookDistance int    `mapstructure:"look_distance"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// RecorderConfig selects where match history goes: none, gorm, postgres or bolt.
type RecorderConfig struct {
	Driver   string         `mapstructure:"driver"`
	BoltPath string         `mapstructure:"bolt_path"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// DSN renders the connection string shared by the gorm and lib/pq drivers.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.DBName)
}

var (
	mu      sync.Mutex
	current *viper.Viper
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.tcp_address", ":7777")
	v.SetDefault("server.ws_address", ":8080")
	v.SetDefault("server.rpc_address", ":1234")
	v.SetDefault("server.metrics_address", ":9090")
	v.SetDefault("server.poll_interval", 200*time.Millisecond)
	v.SetDefault("server.write_timeout", 5*time.Second)

	v.SetDefault("game.map_file", "maps/default.yaml")
	v.SetDefault("game.max_ap", 6)
	v.SetDefault("game.max_health", 3)
	v.SetDefault("game.look_distance", 2)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)

	v.SetDefault("recorder.driver", "none")
	v.SetDefault("recorder.bolt_path", "history.db")
	v.SetDefault("recorder.postgres.host", "localhost")
	v.SetDefault("recorder.postgres.port", 5432)
	v.SetDefault("recorder.postgres.user", "postgres")
	v.SetDefault("recorder.postgres.password", "")
	v.SetDefault("recorder.postgres.dbname", "dungeon")
}

// LoadConfig reads config.yaml from path. A missing file is fine: defaults
// and DUNGEON_* environment variables still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	current = v
	mu.Unlock()
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Watch calls fn with the re-read config every time the file changes.
func Watch(fn func(*Config)) error {
	mu.Lock()
	v := current
	mu.Unlock()
	if v == nil || v.ConfigFileUsed() == "" {
		return ErrNoConfigFile
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		reload(v, fn)
	})
	v.WatchConfig()
	return nil
}

// reload keeps the running config when the edited file does not decode.
func reload(v *viper.Viper, fn func(*Config)) {
	cfg, err := decode(v)
	if err != nil {
		logger.Log.Warnf("Ignoring config reload from %s: %v", v.ConfigFileUsed(), err)
		return
	}
	fn(cfg)
}
