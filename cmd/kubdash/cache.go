package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kubdash/kubdash/pkg/cache"
)

func newCacheCmd(conf *configFile) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}

	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List cached entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(conf, func(a *app) error {
				entries, err := a.cache.Entries()
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Println("Cache is empty.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "KEY\tSIZE\tEXPIRES\tSTATE")
				for _, e := range entries {
					expires, state := humanize.Time(e.ExpiresAt), "live"
					switch {
					case e.Malformed:
						expires, state = "-", "malformed"
					case e.Expired:
						state = "expired"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Key, humanize.Bytes(uint64(e.Size)), expires, state)
				}
				return w.Flush()
			})
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a cached value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(conf, func(a *app) error {
				v, res := a.cache.Lookup(args[0])
				if v == nil {
					return fmt.Errorf("%s: %s", args[0], res)
				}
				fmt.Println(string(v))
				return nil
			})
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(conf, func(a *app) error {
				stats, err := a.cache.Stats()
				if err != nil {
					return err
				}
				fmt.Printf("Entries: %d\nPrefix:  %s\nTTL:     %s default, %s/%s/%s tiers\n",
					stats.Entries, a.cache.Prefix(), a.cfg.Cache.DefaultTTL,
					a.cfg.Cache.ShortTTL, a.cfg.Cache.MediumTTL, a.cfg.Cache.LongTTL)
				return nil
			})
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(conf, func(a *app) error {
				if expiredOnly {
					return prune(a)
				}
				if !a.cache.Clear() {
					return errors.New("cache clear failed, see log")
				}
				fmt.Println("All cache entries cleared.")
				return nil
			})
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove expired and malformed entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(conf, prune)
		},
	}

	var ttl time.Duration
	setCmd := &cobra.Command{
		Use:   "set <key> <json>",
		Short: "Store a raw JSON value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := rawJSON(args[1])
			if err != nil {
				return err
			}
			return withApp(conf, func(a *app) error {
				if !a.cache.Set(args[0], raw, ttl) {
					return errors.New("cache write failed, see log")
				}
				return nil
			})
		},
	}
	setCmd.Flags().DurationVar(&ttl, "ttl", 0, "time to live (default from config)")

	rmCmd := &cobra.Command{
		Use:   "rm <key>",
		Short: "Remove one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(conf, func(a *app) error {
				if !a.cache.Remove(args[0]) {
					return errors.New("cache remove failed, see log")
				}
				return nil
			})
		},
	}

	cmd.AddCommand(lsCmd, getCmd, setCmd, rmCmd, statsCmd, clearCmd, pruneCmd)
	return cmd
}

func prune(a *app) error {
	n, err := pruneCache(a.cache)
	if err != nil {
		return err
	}
	fmt.Printf("Expired cache entries cleared (%d removed).\n", n)
	return nil
}

// pruneCache prunes c and reports how many entries were evicted. The count
// comes from the eviction counter, which Stats fills in even when the store
// cannot be enumerated.
func pruneCache(c *cache.Cache) (int64, error) {
	before, _ := c.Stats()
	if !c.Prune() {
		return 0, errors.New("cache prune failed, see log")
	}
	after, _ := c.Stats()
	return after.Evictions - before.Evictions, nil
}

// rawJSON validates s and returns it as a raw message.
func rawJSON(s string) (json.RawMessage, error) {
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("invalid JSON: %s", s)
	}
	return json.RawMessage(s), nil
}
