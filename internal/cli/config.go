package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/almanac/internal/paths"
	"github.com/mesh-intelligence/almanac/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "ALMANAC"
)

// Config keys.
const (
	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeyRemotePath   = "remote.path"
	cfgKeyRemoteDSN    = "remote.dsn"
	cfgKeyBucket       = "remote.bucket"
	cfgKeyRegion       = "remote.region"
	cfgKeyEndpoint     = "remote.endpoint"
	cfgKeyPathStyle    = "remote.path_style"
	cfgKeySyncStrategy = "sync_strategy"
	cfgKeyBatchSize    = "batch_size"
	cfgKeyPushPolicy   = "push_policy"
	cfgKeyLogLevel     = "log_level"
	cfgKeyMetricsFile  = "metrics_file"
)

// configFile is the structure written to config.yaml.
type configFile struct {
	Backend      string             `yaml:"backend"`
	DataDir      string             `yaml:"data_dir,omitempty"`
	Remote       types.RemoteConfig `yaml:"remote,omitempty"`
	SyncStrategy string             `yaml:"sync_strategy"`
	BatchSize    int                `yaml:"batch_size,omitempty"`
	PushPolicy   string             `yaml:"push_policy"`
	LogLevel     string             `yaml:"log_level"`
	MetricsFile  string             `yaml:"metrics_file,omitempty"`
}

func defaultConfigFile() configFile {
	return configFile{
		Backend:      types.BackendSQLite,
		SyncStrategy: types.SyncImmediate,
		PushPolicy:   types.PushAll,
		LogLevel:     "warn",
	}
}

func setDefaults(v *viper.Viper) {
	d := defaultConfigFile()
	v.SetDefault(cfgKeyBackend, d.Backend)
	v.SetDefault(cfgKeySyncStrategy, d.SyncStrategy)
	v.SetDefault(cfgKeyBatchSize, types.DefaultBatchSize)
	v.SetDefault(cfgKeyPushPolicy, d.PushPolicy)
	v.SetDefault(cfgKeyLogLevel, d.LogLevel)
}

// loadConfig resolves the directories and reads config.yaml with Viper.
// A default config.yaml is written on first run. ALMANAC_* environment
// variables override file values.
func (a *app) loadConfig() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysErr(fmt.Errorf("resolve config dir: %w", err))
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return sysErr(fmt.Errorf("ensure default config: %w", err))
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return sysErr(fmt.Errorf("resolve data dir: %w", err))
	}

	cfg := types.Config{
		Backend: v.GetString(cfgKeyBackend),
		DataDir: dataDir,
		Remote: types.RemoteConfig{
			Path:      v.GetString(cfgKeyRemotePath),
			DSN:       v.GetString(cfgKeyRemoteDSN),
			Bucket:    v.GetString(cfgKeyBucket),
			Region:    v.GetString(cfgKeyRegion),
			Endpoint:  v.GetString(cfgKeyEndpoint),
			PathStyle: v.GetBool(cfgKeyPathStyle),
		},
		SyncStrategy: v.GetString(cfgKeySyncStrategy),
		BatchSize:    v.GetInt(cfgKeyBatchSize),
		PushPolicy:   v.GetString(cfgKeyPushPolicy),
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config in %s: %w", filepath.Join(configDir, configFileExt), err)
	}

	a.configDir = configDir
	a.cfg = cfg
	a.logLevel = v.GetString(cfgKeyLogLevel)
	a.metricsFile = v.GetString(cfgKeyMetricsFile)
	return nil
}

// ensureDefaultConfigFile writes the default config.yaml if the config
// directory has none.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return writeConfigFile(path, defaultConfigFile())
}

func writeConfigFile(path string, cfg configFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := "# almanac configuration. ALMANAC_<KEY> environment variables override these values.\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}
