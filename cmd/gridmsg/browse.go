package main

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/henri123lemoine/gridmsg/internal/app"
	"github.com/henri123lemoine/gridmsg/internal/debug"
)

func (c *cli) newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse cached documents and their grids",
		Args:  cobra.NoArgs,
		RunE:  c.runBrowse,
	}
}

func (c *cli) runBrowse(cmd *cobra.Command, args []string) error {
	if !c.cfg.Cache.Enabled {
		return errors.New("the browser lists the document cache; set cache.enabled = true")
	}

	fetcher, err := c.newFetcher(nil, false)
	if err != nil {
		return err
	}

	model := app.New(c.cfg, app.Services{
		Fetcher:  fetcher,
		CacheDir: c.cfg.CacheDir(),
		Decode:   c.decodeOptions(),
	})

	debug.Log("starting browser on %s", c.cfg.CacheDir())
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}
