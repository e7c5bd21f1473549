package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"analyzer": { "maxChainUnits": 128 },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, 128, viper.GetInt("analyzer.maxChainUnits"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./trafficlogs", viper.GetString("logsDir"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "postgres", viper.GetString("db.username"))
	assert.Equal(t, "postgres", viper.GetString("db.password"))
	assert.Equal(t, "traffic", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "traffic_reports", viper.GetString("influx.bucket"))
	assert.Equal(t, "ws://localhost:5000/api/reports", viper.GetString("stream.url"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	// defaults are still in place
	assert.Equal(t, "memory", GetStoreConfig().Type)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("TRAFFIC_STORE_TYPE", "sqlite")
	t.Setenv("TRAFFIC_LOGLEVEL", "warn")

	require.NoError(t, Load(writeConfig(t, `{"store": {"type": "postgres"}}`)))

	assert.Equal(t, "sqlite", GetStoreConfig().Type)
	assert.Equal(t, "warn", GetString("logLevel"))
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetAnalyzerConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"analyzer": {"dumpVehiclePaths": true}}`)))

	cfg := GetAnalyzerConfig()
	assert.Equal(t, 65536, cfg.MaxChainUnits)
	assert.True(t, cfg.DumpVehiclePaths)
	assert.Equal(t, 16, cfg.QueueSize)
}

func TestGetStoreConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStoreConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./traffic_snapshot.db", cfg.SQLitePath)
	assert.Equal(t, "", cfg.Snapshot)
}

func TestGetExportConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"export": {"originLat": 52.5, "originLon": 13.4, "compressOutput": true}}`)))

	cfg := GetExportConfig()
	assert.Equal(t, "./reports", cfg.OutputDir)
	assert.True(t, cfg.CompressOutput)
	assert.Equal(t, 52.5, cfg.OriginLat)
	assert.Equal(t, 13.4, cfg.OriginLon)
}

func TestGetInfluxAndStreamConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"influx": {"enabled": true, "token": "abc"},
		"stream": {"enabled": true, "secret": "s3cret"}
	}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "abc", ic.Token)
	assert.Equal(t, "http", ic.Protocol)
	assert.Equal(t, "8086", ic.Port)

	sc := GetStreamConfig()
	assert.True(t, sc.Enabled)
	assert.Equal(t, "s3cret", sc.Secret)
}

func TestGetDBConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"db": {"database": "city"}}`)))

	cfg := GetDBConfig()
	assert.Equal(t, "city", cfg.Database)
	assert.Equal(t, "localhost", cfg.Host)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "traffic-report", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
	assert.False(t, cfg.Metrics)
	assert.Equal(t, time.Minute, cfg.MetricsInterval)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4317",
			"insecure": false,
			"metrics": true,
			"metricsInterval": "15s"
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
	assert.True(t, oc.Metrics)
	assert.Equal(t, 15*time.Second, oc.MetricsInterval)
}
