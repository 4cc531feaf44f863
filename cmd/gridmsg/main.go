package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/henri123lemoine/gridmsg/internal/config"
	"github.com/henri123lemoine/gridmsg/internal/debug"
	"github.com/henri123lemoine/gridmsg/internal/decode"
	"github.com/henri123lemoine/gridmsg/internal/parse"
	"github.com/henri123lemoine/gridmsg/internal/source"
)

// cli holds flag values and the loaded config for one invocation.
type cli struct {
	configPath string
	debugPath  string
	cfg        *config.Config

	decode decodeFlags
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "gridmsg [ref...]",
		Short: "Render character grids described in documents",
		Long: `gridmsg reads documents that list (x, character, y) triples, as a table
or as text, and prints the character grid they describe.

A ref is an http(s) URL, a file path, or "-" for standard input. Google Docs
links are rewritten to their HTML export. Running gridmsg with refs is the
same as "gridmsg decode".`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			debug.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return c.runDecode(cmd, args)
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: "+config.ConfigPath()+")")
	root.PersistentFlags().StringVar(&c.debugPath, "debug", "", "write a debug log to this file")
	c.decode.register(root)

	root.AddCommand(
		c.newDecodeCmd(),
		c.newBrowseCmd(),
		c.newInitConfigCmd(),
		c.newCacheCmd(),
	)
	return root
}

// setup enables debug logging and loads the config.
func (c *cli) setup(cmd *cobra.Command) error {
	if c.debugPath != "" {
		if err := debug.Enable(c.debugPath); err != nil {
			return fmt.Errorf("enabling debug log: %w", err)
		}
	}

	path := c.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	for _, w := range cfg.Validate() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
	}
	debug.Logw("config loaded", "path", path, "cache_dir", cfg.CacheDir())

	c.cfg = cfg
	return nil
}

// newFetcher builds a Fetcher from the config. noCache skips cache lookups.
func (c *cli) newFetcher(stdin io.Reader, noCache bool) (*source.Fetcher, error) {
	opts := source.Options{
		UserAgent:     c.cfg.Fetch.UserAgent,
		Timeout:       c.cfg.FetchTimeout(),
		MaxBodyBytes:  c.cfg.Fetch.MaxBodyBytes,
		MemoryEntries: c.cfg.Cache.MemoryEntries,
		NoCache:       noCache,
		Stdin:         stdin,
	}
	if c.cfg.Cache.Enabled {
		opts.CacheDir = c.cfg.CacheDir()
	}
	return source.NewFetcher(opts)
}

// decodeOptions maps the config onto decoder options.
func (c *cli) decodeOptions() decode.Options {
	return decode.Options{
		Parse:       parse.Options{Strict: c.cfg.Parse.Strict},
		MaxCells:    c.cfg.Render.MaxCells,
		Concurrency: c.cfg.Batch.Concurrency,
		KeepGoing:   c.cfg.Batch.KeepGoing,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
