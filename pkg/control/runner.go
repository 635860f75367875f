package control

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/anyone-protocol/margot/pkg/blocklist"
	"github.com/anyone-protocol/margot/pkg/config"
	"github.com/anyone-protocol/margot/pkg/ingest"
)

// Runner awaits a snapshot from its source and hands it to Run.
type Runner struct {
	source ingest.Source
	env    Env
}

func NewRunner(source ingest.Source, env Env) *Runner {
	return &Runner{
		source: source,
		env:    env,
	}
}

// Run loads the snapshot, then executes cmd. Only the load honours ctx.
func (r *Runner) Run(ctx context.Context, cmd Command) error {
	if c, ok := r.source.(io.Closer); ok {
		defer c.Close()
	}

	start := time.Now()
	snap, err := r.source.Load(ctx)
	if err != nil {
		return err
	}
	slog.Info("snapshot loaded",
		"source", r.source.Name(),
		"relays", snap.Len(),
		"valid_after", snap.ValidAfter,
		"elapsed", time.Since(start),
	)

	return Run(cmd, snap, r.env)
}

// NewSource picks the snapshot source from configuration: a JSON document
// file, then a Redis key, then consensus files.
func NewSource(cfg config.SourceConfig) ingest.Source {
	switch {
	case cfg.Document != "":
		return ingest.NewDocumentFileSource(cfg.Document)
	case cfg.Redis.Address != "":
		return ingest.NewRedisSource(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Key)
	}
	return ingest.NewConsensusSource(cfg.Consensus, cfg.Microdescs)
}

// ArtifactsConfig converts the configured artifact locations.
func ArtifactsConfig(cfg config.ArtifactsConfig) blocklist.Config {
	return blocklist.Config{
		AddressPath:  cfg.AddressPath,
		IdentityPath: cfg.IdentityPath,
		TicketURL:    cfg.TicketURL,
	}
}
