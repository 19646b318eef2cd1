// Package loader performs the one-time initial load: it fetches the dataset
// and the map geometry concurrently, decodes both, and builds the record
// store and entity resolver the views read from.
package loader

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crop-explorer/internal/config"
	"github.com/sells-group/crop-explorer/internal/entity"
	"github.com/sells-group/crop-explorer/internal/record"
)

// Source opens dataset and geometry URIs.
type Source interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
	ReadAll(ctx context.Context, uri string) ([]byte, error)
}

// LoadError reports a failed initial load. Source is the URI, or the
// logical step, that failed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return "loader: load " + e.Source + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// Result is everything the views need after a successful load.
type Result struct {
	Store    *record.Store
	Resolver *entity.Resolver
	Features []entity.Feature
	Policy   entity.Policy
	Duration time.Duration
}

// Load fetches and decodes both sources, then builds the store and the
// resolver. Either fetch failing cancels the other; every failure is a
// *LoadError.
func Load(ctx context.Context, cfg *config.Config, src Source) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("component", "loader"))

	policy, err := resolvePolicy(cfg.Classify)
	if err != nil {
		return nil, &LoadError{Source: cfg.Classify.PolicyFile, Err: err}
	}

	var (
		rows     []record.RawRow
		features []entity.Feature
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = ReadDataset(gctx, src, cfg.Data)
		if err != nil {
			return &LoadError{Source: cfg.Data.Source, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		features, err = ReadGeometry(gctx, src, cfg.Geometry)
		if err != nil {
			return &LoadError{Source: cfg.Geometry.Source, Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("initial load failed", zap.Error(err))
		return nil, err
	}

	store, err := record.Build(rows)
	if err != nil {
		return nil, &LoadError{Source: cfg.Data.Source, Err: err}
	}
	resolver := entity.NewResolver(store, policy, entity.GeometryIDs(features))

	res := &Result{
		Store:    store,
		Resolver: resolver,
		Features: features,
		Policy:   policy,
		Duration: time.Since(start),
	}
	lo, hi := store.YearRange()
	log.Info("initial load complete",
		zap.Int("rows", len(rows)),
		zap.Int("records", store.Len()),
		zap.Int("skipped", store.Skipped()),
		zap.Int("areas", len(store.AllAreas())),
		zap.Int("items", len(store.AllItems())),
		zap.Int("min_year", lo),
		zap.Int("max_year", hi),
		zap.Int("features", len(features)),
		zap.Int("countries", len(resolver.AreasOf(entity.Country))),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func resolvePolicy(cfg config.ClassifyConfig) (entity.Policy, error) {
	policy := entity.DefaultPolicy()
	if cfg.PolicyFile != "" {
		p, err := entity.LoadPolicy(cfg.PolicyFile)
		if err != nil {
			return entity.Policy{}, eris.Wrap(err, "loader: classification policy")
		}
		policy = p
	}
	if cfg.WorldName != "" {
		policy.WorldName = cfg.WorldName
	}
	return policy, nil
}
