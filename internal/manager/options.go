package manager

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

// Options configures a Manager. The zero value syncs immediately, pushes
// every record on Sync, and logs to slog.Default.
type Options struct {
	SyncStrategy string // types.SyncImmediate, SyncOnClose or SyncBatch
	BatchSize    int    // remote operations per flush under SyncBatch
	PushPolicy   string // types.PushAll or PushChanged

	// Clock stamps LastModified on local mutations.
	Clock func() time.Time
	// NewID assigns ids to entities added without one.
	NewID func() string

	Logger   *slog.Logger
	Observer Observer
	// OnError is called for every failed background remote operation.
	OnError func(Failure)
}

// OptionsFromConfig maps the sync settings of cfg onto Options.
func OptionsFromConfig(cfg types.Config) Options {
	return Options{
		SyncStrategy: cfg.GetSyncStrategy(),
		BatchSize:    cfg.GetBatchSize(),
		PushPolicy:   cfg.GetPushPolicy(),
	}
}

func (o Options) withDefaults(kind string) Options {
	if o.SyncStrategy == "" {
		o.SyncStrategy = types.SyncImmediate
	}
	if o.BatchSize <= 0 {
		o.BatchSize = types.DefaultBatchSize
	}
	if o.PushPolicy == "" {
		o.PushPolicy = types.PushAll
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.NewID == nil {
		o.NewID = NewID
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	o.Logger = o.Logger.With("kind", kind)
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	return o
}

// NewID returns a UUID v7, falling back to v4 if the v7 generator fails.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Observer receives timing and outcome of remote work.
type Observer interface {
	// ObserveRemote is called after each Store save or delete.
	ObserveRemote(kind, op string, elapsed time.Duration, err error)
	// ObserveSync is called after each Sync.
	ObserveSync(kind string, res SyncResult, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveRemote(string, string, time.Duration, error)   {}
func (nopObserver) ObserveSync(string, SyncResult, time.Duration, error) {}

// Failure describes a background remote operation that did not succeed.
// Failed operations are reported once and never retried; the next Sync
// reconciles whatever is left.
type Failure struct {
	Kind string
	Op   string // "save" or "delete"
	ID   string
	Err  error
}

// SyncResult summarizes one Sync.
type SyncResult struct {
	Fetched int // remote records read
	Merged  int // records in the collection after the merge
	Pushed  int // records saved to the remote
	Failed  int // saves that failed
}
