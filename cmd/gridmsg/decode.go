package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/henri123lemoine/gridmsg/internal/config"
	"github.com/henri123lemoine/gridmsg/internal/decode"
	"github.com/henri123lemoine/gridmsg/internal/grid"
	"github.com/henri123lemoine/gridmsg/internal/parse"
)

// decodeFlags are shared by the root command and "decode".
type decodeFlags struct {
	format      string
	inputFormat string
	strict      bool
	noCache     bool
	keepGoing   bool
	maxCells    int
	header      bool
	jobs        int
}

func (f *decodeFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.format, "format", "f", "text", "output format: text or json")
	fl.StringVar(&f.inputFormat, "input-format", "auto", "document format: auto, html, json or text")
	fl.BoolVar(&f.strict, "strict", false, "fail on rows with non-integer coordinates instead of skipping them")
	fl.BoolVar(&f.noCache, "no-cache", false, "fetch remote documents even when cached")
	fl.BoolVarP(&f.keepGoing, "keep-going", "k", false, "keep decoding the remaining refs after one fails")
	fl.IntVar(&f.maxCells, "max-cells", grid.DefaultMaxCells, "largest grid accepted, in cells")
	fl.BoolVar(&f.header, "header", true, "print \"== ref ==\" before each grid when decoding several refs")
	fl.IntVarP(&f.jobs, "jobs", "j", 4, "documents decoded in parallel")
}

// apply overrides config values with the flags set on the command line.
func (f *decodeFlags) apply(fl *pflag.FlagSet, cfg *config.Config) {
	if fl.Changed("format") {
		cfg.Output.Format = f.format
	}
	if fl.Changed("strict") {
		cfg.Parse.Strict = f.strict
	}
	if fl.Changed("keep-going") {
		cfg.Batch.KeepGoing = f.keepGoing
	}
	if fl.Changed("max-cells") {
		cfg.Render.MaxCells = f.maxCells
	}
	if fl.Changed("header") {
		cfg.Output.Header = f.header
	}
	if fl.Changed("jobs") {
		cfg.Batch.Concurrency = f.jobs
	}
}

func (c *cli) newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode ref...",
		Short: "Print the grid described by each document",
		Example: `  gridmsg decode https://docs.google.com/document/d/<id>/edit
  gridmsg decode --format json grid.html other.txt
  cat grid.txt | gridmsg decode -`,
		Args: cobra.MinimumNArgs(1),
		RunE: c.runDecode,
	}
	c.decode.register(cmd)
	return cmd
}

func (c *cli) runDecode(cmd *cobra.Command, args []string) error {
	c.decode.apply(cmd.Flags(), c.cfg)

	inputFormat, err := parse.ParseFormat(c.decode.inputFormat)
	if err != nil {
		return err
	}
	format := c.cfg.Output.Format
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown output format %q (expected text or json)", format)
	}

	fetcher, err := c.newFetcher(cmd.InOrStdin(), c.decode.noCache)
	if err != nil {
		return err
	}
	opts := c.decodeOptions()
	opts.Parse.Format = inputFormat

	results, err := decode.New(fetcher, opts).DecodeAll(cmd.Context(), args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		err = writeJSON(out, results)
	} else {
		err = writeText(out, cmd.ErrOrStderr(), results, c.cfg.Output.Header && len(results) > 1)
	}
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

// writeText prints grids line by line. Failed results go to errOut.
func writeText(out, errOut io.Writer, results []*decode.Result, header bool) error {
	for i, res := range results {
		if header {
			if i > 0 {
				if _, err := fmt.Fprintln(out); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(out, "== %s ==\n", res.Ref); err != nil {
				return err
			}
		}

		switch {
		case res.Err != nil:
			fmt.Fprintf(errOut, "Error: %v\n", res.Err)
		case res.Empty():
			if _, err := fmt.Fprintln(out, decode.NoGridMessage); err != nil {
				return err
			}
		default:
			if err := grid.WriteRows(out, res.Rows); err != nil {
				return err
			}
		}
	}
	return nil
}

type jsonResult struct {
	*decode.Result
	Error string `json:"error,omitempty"`
}

// writeJSON prints one JSON object per result.
func writeJSON(out io.Writer, results []*decode.Result) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	for _, res := range results {
		r := jsonResult{Result: res}
		if res.Err != nil {
			r.Error = res.Err.Error()
		}
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
