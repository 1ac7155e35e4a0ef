package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leonardcser/apod-cache/internal/cache"
	"github.com/leonardcser/apod-cache/internal/config"
	"github.com/leonardcser/apod-cache/internal/logger"
)

type rootFlags struct {
	backend string
	path    string
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "cachectl",
		Short: "Inspect and maintain the APOD response cache",
		Long: `Inspect and maintain the APOD response cache.

Every command loads the snapshot, applies its change and writes the snapshot
back. Run it while the server is stopped.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.verbose {
				logger.SetLevel("debug")
			} else {
				logger.SetLevel("warn")
			}
		},
	}
	cmd.PersistentFlags().StringVar(&flags.backend, "backend", "", "snapshot backend, file or bolt (default from "+config.EnvBackend+")")
	cmd.PersistentFlags().StringVar(&flags.path, "path", "", "snapshot location (default from "+config.EnvCachePath+")")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log cache activity to stderr")

	cmd.AddCommand(newStatsCmd(flags))
	cmd.AddCommand(newKeysCmd(flags))
	cmd.AddCommand(newClearCmd(flags))
	cmd.AddCommand(newSweepCmd(flags))
	return cmd
}

// session is one opened snapshot. close writes the snapshot back.
type session struct {
	store  cache.Store
	cache  *cache.Cache[json.RawMessage]
	stored int // entries in the snapshot before loading
}

func open(flags *rootFlags) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	backend := defaultString(flags.backend, cfg.Backend)
	path := flags.path
	if path == "" {
		path = cfg.CachePath
		if flags.backend != "" && flags.backend != cfg.Backend {
			path = config.DefaultCachePath(backend)
		}
	}

	store, err := cache.OpenStore(backend, path)
	if err != nil {
		return nil, err
	}
	opts := cfg.CacheOptions(store)
	opts.SaveInterval = -1
	opts.SweepInterval = -1
	stored := storedEntries(store)
	return &session{store: store, cache: cache.New[json.RawMessage](opts), stored: stored}, nil
}

func (s *session) close() error {
	return errors.Join(s.cache.Close(), s.store.Close())
}

func newStatsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print hit/miss counters and size as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(flags)
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(s.cache.Stats(), "", "  ")
			if err != nil {
				return errors.Join(err, s.close())
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return s.close()
		},
	}
}

func newKeysCmd(flags *rootFlags) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List live keys in sorted order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(flags)
			if err != nil {
				return err
			}
			for _, k := range s.cache.Keys() {
				if strings.HasPrefix(k, prefix) {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
			}
			return s.close()
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only list keys with this prefix")
	return cmd
}

func newClearCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [prefix]",
		Short: "Remove entries, all of them or those under a key prefix",
		Example: `  cachectl clear                # remove everything
  cachectl clear apod:date:     # remove cached single-date lookups`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var prefix string
			if len(args) == 1 {
				prefix = args[0]
			}
			s, err := open(flags)
			if err != nil {
				return err
			}
			n := s.cache.Clear(prefix)
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d entries\n", n)
			return s.close()
		},
	}
}

func newSweepCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Drop expired entries from the snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(flags)
			if err != nil {
				return err
			}
			// Loading already drops expired entries, so count against what
			// the store held.
			s.cache.Sweep()
			removed := s.stored - s.cache.Stats().Size
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", removed)
			return s.close()
		},
	}
}

func storedEntries(store cache.Store) int {
	b, err := store.Load()
	if err != nil {
		return 0
	}
	var snap struct {
		Cache map[string]json.RawMessage `json:"cache"`
	}
	if json.Unmarshal(b, &snap) != nil {
		return 0
	}
	return len(snap.Cache)
}

func defaultString(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
