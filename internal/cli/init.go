package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/almanac/internal/cloud"
)

type initOptions struct {
	backend      string
	remotePath   string
	dsn          string
	bucket       string
	syncStrategy string
	pushPolicy   string
}

func newInitCmd(a *app) *cobra.Command {
	var opts initOptions
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize almanac storage",
		Long: `Init creates the configuration and data directories, records the given
settings in config.yaml, and initializes the remote backend.

Settings not given on the command line keep their current values.

Example:
  almanac init
  almanac init --backend postgres --dsn postgres://localhost/almanac
  almanac init --backend s3 --bucket my-almanac --sync-strategy on_close`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runInit(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.backend, "backend", "", "remote backend (memory, sqlite, postgres, s3)")
	f.StringVar(&opts.remotePath, "remote-path", "", "sqlite database file, or s3 key prefix")
	f.StringVar(&opts.dsn, "dsn", "", "postgres connection string")
	f.StringVar(&opts.bucket, "bucket", "", "s3 bucket")
	f.StringVar(&opts.syncStrategy, "sync-strategy", "", "when remote writes run (immediate, on_close, batch)")
	f.StringVar(&opts.pushPolicy, "push-policy", "", "which records sync pushes (all, changed)")
	return cmd
}

func (a *app) runInit(cmd *cobra.Command, opts initOptions) error {
	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return sysErr(fmt.Errorf("create data directory: %w", err))
	}

	path := filepath.Join(a.configDir, configFileExt)
	if opts != (initOptions{}) {
		file := configFile{
			Backend:      a.cfg.Backend,
			Remote:       a.cfg.Remote,
			SyncStrategy: a.cfg.GetSyncStrategy(),
			BatchSize:    a.cfg.BatchSize,
			PushPolicy:   a.cfg.GetPushPolicy(),
			LogLevel:     a.logLevel,
			MetricsFile:  a.metricsFile,
		}
		set := func(dst *string, v string) {
			if v != "" {
				*dst = v
			}
		}
		set(&file.Backend, opts.backend)
		set(&file.Remote.Path, opts.remotePath)
		set(&file.Remote.DSN, opts.dsn)
		set(&file.Remote.Bucket, opts.bucket)
		set(&file.SyncStrategy, opts.syncStrategy)
		set(&file.PushPolicy, opts.pushPolicy)
		if err := writeConfigFile(path, file); err != nil {
			return sysErr(fmt.Errorf("write config: %w", err))
		}
		if err := a.loadConfig(); err != nil {
			return err
		}
	}

	backend, err := cloud.Open(cmd.Context(), a.cfg)
	if err != nil {
		return sysErr(fmt.Errorf("initialize %s backend: %w", a.cfg.Backend, err))
	}
	if err := backend.Close(); err != nil {
		return sysErr(fmt.Errorf("finalize %s backend: %w", a.cfg.Backend, err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Almanac initialized successfully")
	fmt.Fprintf(out, "config:  %s\n", path)
	fmt.Fprintf(out, "data:    %s\n", a.cfg.DataDir)
	fmt.Fprintf(out, "backend: %s\n", backend.Name())
	return nil
}
