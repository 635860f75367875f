package ingest

import (
	"context"

	"github.com/anyone-protocol/margot/pkg/model"
)

// Source acquires a directory snapshot. Load blocks until the snapshot is
// available or ctx is done.
type Source interface {
	Load(ctx context.Context) (*model.Snapshot, error)
	Name() string
}
