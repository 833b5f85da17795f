package types

import "errors"

// Config holds backend selection and sync parameters for opening a planner.
type Config struct {
	Backend      string       `json:"backend" yaml:"backend"`
	DataDir      string       `json:"data_dir" yaml:"data_dir"`
	Remote       RemoteConfig `json:"remote" yaml:"remote"`
	SyncStrategy string       `json:"sync_strategy" yaml:"sync_strategy"`
	BatchSize    int          `json:"batch_size" yaml:"batch_size"`
	PushPolicy   string       `json:"push_policy" yaml:"push_policy"`
}

// RemoteConfig carries backend-specific connection settings. Only the
// fields the selected backend reads need to be set.
type RemoteConfig struct {
	// Path is the sqlite database file.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// DSN is the postgres connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// Bucket, Region, Endpoint and PathStyle configure the s3 backend.
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	PathStyle bool   `json:"path_style,omitempty" yaml:"path_style,omitempty"`
}

// Supported backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// Sync strategies control when remote saves and deletes run.
const (
	SyncImmediate = "immediate" // each mutation starts its remote write at once
	SyncOnClose   = "on_close"  // remote writes queue until Flush or Close
	SyncBatch     = "batch"     // remote writes flush every BatchSize mutations
)

// Push policies control which local records Sync saves after merging.
const (
	PushAll     = "all"
	PushChanged = "changed"
)

// DefaultBatchSize applies when SyncBatch is selected without a size.
const DefaultBatchSize = 10

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrSyncStrategyUnknown = errors.New("unknown sync strategy")
	ErrBatchSizeInvalid    = errors.New("batch size must be positive")
	ErrPushPolicyUnknown   = errors.New("unknown push policy")
)

var knownBackends = map[string]bool{
	BackendMemory:   true,
	BackendSQLite:   true,
	BackendPostgres: true,
	BackendS3:       true,
}

var knownStrategies = map[string]bool{
	"":            true,
	SyncImmediate: true,
	SyncOnClose:   true,
	SyncBatch:     true,
}

var knownPolicies = map[string]bool{
	"":          true,
	PushAll:     true,
	PushChanged: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if !knownStrategies[c.SyncStrategy] {
		return ErrSyncStrategyUnknown
	}
	if c.BatchSize < 0 {
		return ErrBatchSizeInvalid
	}
	if !knownPolicies[c.PushPolicy] {
		return ErrPushPolicyUnknown
	}
	return nil
}

// GetSyncStrategy returns the effective sync strategy, defaulting to
// SyncImmediate.
func (c Config) GetSyncStrategy() string {
	if c.SyncStrategy == "" {
		return SyncImmediate
	}
	return c.SyncStrategy
}

// GetBatchSize returns the effective batch size, defaulting to
// DefaultBatchSize.
func (c Config) GetBatchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

// GetPushPolicy returns the effective push policy, defaulting to PushAll.
func (c Config) GetPushPolicy() string {
	if c.PushPolicy == "" {
		return PushAll
	}
	return c.PushPolicy
}
