package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crop-explorer/internal/config"
	"github.com/sells-group/crop-explorer/internal/fetcher"
	"github.com/sells-group/crop-explorer/internal/loader"
	"github.com/sells-group/crop-explorer/internal/record"
	"github.com/sells-group/crop-explorer/internal/selection"
	"github.com/sells-group/crop-explorer/internal/session"
)

// loadData validates the configuration and runs the initial load.
func loadData(ctx context.Context, c *config.Config) (*loader.Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opener := fetcher.NewOpener(fetcher.Options{
		UserAgent:     c.Fetch.UserAgent,
		Timeout:       c.Fetch.Timeout(),
		MaxRetries:    c.Fetch.MaxRetries,
		RatePerSecond: c.Fetch.RatePerSecond,
	})
	return loader.Load(ctx, c, opener)
}

// sessionOptions derives selection defaults from the configuration and the
// loaded catalogs. The default item is the first catalog item.
func sessionOptions(c *config.Config, res *loader.Result) (session.Options, error) {
	defaults, err := selectionDefaults(c.View, res.Store)
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		Defaults: defaults,
		TopNMin:  c.View.TopNMin,
		TopNMax:  c.View.TopNMax,
		Interval: c.Playback.Interval(),
		Features: res.Features,
	}, nil
}

func selectionDefaults(v config.ViewConfig, store *record.Store) (selection.Defaults, error) {
	policy, err := selection.ParseYearPolicy(v.ResetYear)
	if err != nil {
		return selection.Defaults{}, err
	}
	items := store.AllItems()
	if len(items) == 0 {
		return selection.Defaults{}, eris.New("crop-explorer: dataset has no items")
	}
	lo, hi := store.YearRange()
	return selection.Defaults{
		Item:       items[0],
		MinYear:    lo,
		MaxYear:    hi,
		YearPolicy: policy,
		TopN:       v.TopN,
		Capacity:   v.SelectionCapacity,
	}, nil
}
