package level

import (
	"context"
	"fmt"
	"time"

	"github.com/evdnx/levelbot/config"
	"github.com/evdnx/levelbot/logger"
	"github.com/evdnx/levelbot/types"
)

// Source materialises raw level records. Parsing the level definition file is
// the source's job.
type Source interface {
	Load(ctx context.Context) ([]Record, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Record, error)

func (f SourceFunc) Load(ctx context.Context) ([]Record, error) { return f(ctx) }

// StaticSource always returns the same records.
type StaticSource []Record

func (s StaticSource) Load(context.Context) ([]Record, error) { return s, nil }

// Loader builds, replays and validates a fresh level set.
type Loader struct {
	src Source
	cfg config.EngineConfig
	log logger.Logger
}

func NewLoader(src Source, cfg config.EngineConfig, log logger.Logger) *Loader {
	return &Loader{src: src, cfg: cfg, log: log}
}

// Load returns the next level set. Expired levels are dropped and every
// remaining level is replayed over the completed bars so it starts in the
// state it would have reached live. The caller must keep active when an
// error is returned: ErrLevelSourceUnavailable when the source fails,
// ErrDuplicateLevelSet when the result cannot be told apart from active.
func (ld *Loader) Load(ctx context.Context, m types.Market, active []*Level, now time.Time) ([]*Level, error) {
	records, err := ld.src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrLevelSourceUnavailable, err)
	}

	built, err := Build(records, m, ld.cfg)
	if err != nil {
		ld.log.Warn("level_records_dropped", logger.Err(err))
	}

	next := make([]*Level, 0, len(built))
	for _, l := range built {
		if l.Expired(now) {
			continue
		}
		for _, s := range Replay(l, m.Bars()) {
			ld.log.Info("level_replayed",
				logger.String("level", l.Label),
				logger.String("from", s.From.String()),
				logger.String("to", s.To.String()),
				logger.Time("at", s.At))
		}
		next = append(next, l)
	}

	if Indistinguishable(active, next, now) {
		return nil, types.ErrDuplicateLevelSet
	}
	return next, nil
}
