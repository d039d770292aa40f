package state

import "context"

type Store interface {
	// Load returns ok=false when nothing was saved for fp yet.
	Load(ctx context.Context, fp Fingerprint) (st State, ok bool, err error)
	Save(ctx context.Context, fp Fingerprint, st State) error
}
