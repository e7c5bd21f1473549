package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "traffic_report.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. TRAFFIC_STORE_TYPE.
const EnvPrefix = "TRAFFIC"

// AnalyzerConfig holds report computation settings
type AnalyzerConfig struct {
	MaxChainUnits    int  `json:"maxChainUnits" mapstructure:"maxChainUnits"`
	DumpVehiclePaths bool `json:"dumpVehiclePaths" mapstructure:"dumpVehiclePaths"`
	QueueSize        int  `json:"queueSize" mapstructure:"queueSize"`
}

// StoreConfig selects where the tables are read from
type StoreConfig struct {
	Type       string `json:"type" mapstructure:"type"`
	SQLitePath string `json:"sqlitePath" mapstructure:"sqlitePath"`
	Snapshot   string `json:"snapshot" mapstructure:"snapshot"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// ExportConfig holds report output settings
type ExportConfig struct {
	OutputDir      string  `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool    `json:"compressOutput" mapstructure:"compressOutput"`
	OriginLat      float64 `json:"originLat" mapstructure:"originLat"`
	OriginLon      float64 `json:"originLon" mapstructure:"originLon"`
}

// InfluxConfig holds InfluxDB sink settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// StreamConfig holds websocket streaming settings
type StreamConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Secret  string `json:"secret" mapstructure:"secret"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
	// Metrics exports analyzer, loop and dispatcher metrics to the log file.
	Metrics         bool          `json:"metrics" mapstructure:"metrics"`
	MetricsInterval time.Duration `json:"metricsInterval" mapstructure:"metricsInterval"`
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./trafficlogs")

	viper.SetDefault("analyzer.maxChainUnits", 65536)
	viper.SetDefault("analyzer.dumpVehiclePaths", false)
	viper.SetDefault("analyzer.queueSize", 16)

	viper.SetDefault("store.type", "memory")
	viper.SetDefault("store.sqlitePath", "./traffic_snapshot.db")
	viper.SetDefault("store.snapshot", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "traffic")

	viper.SetDefault("export.outputDir", "./reports")
	viper.SetDefault("export.compressOutput", false)
	viper.SetDefault("export.originLat", 0.0)
	viper.SetDefault("export.originLon", 0.0)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "traffic")
	viper.SetDefault("influx.bucket", "traffic_reports")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("stream.enabled", false)
	viper.SetDefault("stream.url", "ws://localhost:5000/api/reports")
	viper.SetDefault("stream.secret", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "traffic-report")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.metrics", false)
	viper.SetDefault("otel.metricsInterval", "60s")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Environment
// variables with the TRAFFIC_ prefix override file values.
func Load(configDir string) error {
	SetDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

var watchOnce sync.Once

// Watch calls onChange whenever the loaded config file changes on disk.
// Only the first call registers a watcher.
func Watch(onChange func(file string)) {
	watchOnce.Do(func() {
		viper.OnConfigChange(func(e fsnotify.Event) {
			if e.Has(fsnotify.Write) || e.Has(fsnotify.Create) {
				onChange(e.Name)
			}
		})
		viper.WatchConfig()
	})
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetAnalyzerConfig returns report computation settings.
func GetAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		MaxChainUnits:    viper.GetInt("analyzer.maxChainUnits"),
		DumpVehiclePaths: viper.GetBool("analyzer.dumpVehiclePaths"),
		QueueSize:        viper.GetInt("analyzer.queueSize"),
	}
}

// GetStoreConfig returns the table source settings.
func GetStoreConfig() StoreConfig {
	return StoreConfig{
		Type:       viper.GetString("store.type"),
		SQLitePath: viper.GetString("store.sqlitePath"),
		Snapshot:   viper.GetString("store.snapshot"),
	}
}

// GetDBConfig returns the Postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetExportConfig returns report output settings.
func GetExportConfig() ExportConfig {
	return ExportConfig{
		OutputDir:      viper.GetString("export.outputDir"),
		CompressOutput: viper.GetBool("export.compressOutput"),
		OriginLat:      viper.GetFloat64("export.originLat"),
		OriginLon:      viper.GetFloat64("export.originLon"),
	}
}

// GetInfluxConfig returns the InfluxDB sink settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetStreamConfig returns the websocket streaming settings.
func GetStreamConfig() StreamConfig {
	return StreamConfig{
		Enabled: viper.GetBool("stream.enabled"),
		URL:     viper.GetString("stream.url"),
		Secret:  viper.GetString("stream.secret"),
	}
}

// GetOTelConfig returns OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),

		Metrics:         viper.GetBool("otel.metrics"),
		MetricsInterval: viper.GetDuration("otel.metricsInterval"),
	}
}
