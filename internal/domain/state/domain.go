package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/NordCoder/Feedwatch/internal/domain/activity"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrPersistence = errors.New("state persistence")
	ErrOutOfRange  = errors.New("value does not fit a signed 64-bit column")
)

const DefaultPollIntervalMillis uint64 = 60 * 1000

// State is what survives a restart. The JSON keys match the files written by
// earlier releases so existing state keeps loading.
type State struct {
	LastEventID        uint64 `json:"lastEvent" yaml:"last_event_id"`
	Validator          string `json:"etag,omitempty" yaml:"etag,omitempty"`
	PollIntervalMillis uint64 `json:"poll" yaml:"poll_interval_ms"`
}

func Initial() State {
	return State{PollIntervalMillis: DefaultPollIntervalMillis}
}

// Merge overlays a loaded record on top of s. The high-water mark never moves
// backwards and a zero interval keeps the current one.
func (s State) Merge(loaded State) State {
	out := s
	if loaded.LastEventID > out.LastEventID {
		out.LastEventID = loaded.LastEventID
	}
	if loaded.Validator != "" {
		out.Validator = loaded.Validator
	}
	if loaded.PollIntervalMillis > 0 {
		out.PollIntervalMillis = loaded.PollIntervalMillis
	}
	return out
}

type Fingerprint string

type Identity struct {
	Target  activity.Target `json:"target"`
	Auth    string          `json:"auth,omitempty"`
	BaseURL string          `json:"base_url,omitempty"`
}

// NewFingerprint derives the storage key of a configuration. Two runners with
// the same target but different credentials or API hosts never share state.
func NewFingerprint(id Identity) (Fingerprint, error) {
	raw, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := blake2b.Sum256(raw)
	return Fingerprint(hex.EncodeToString(sum[:])), nil
}

// SQLInt converts v for storage in a BIGINT/INTEGER column.
func SQLInt(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, v)
	}
	return int64(v), nil
}

// SQLColumns returns the numeric fields of s as column values.
func (s State) SQLColumns() (lastEventID, pollMillis int64, err error) {
	if lastEventID, err = SQLInt(s.LastEventID); err != nil {
		return 0, 0, fmt.Errorf("last event id: %w", err)
	}
	if pollMillis, err = SQLInt(s.PollIntervalMillis); err != nil {
		return 0, 0, fmt.Errorf("poll interval: %w", err)
	}
	return lastEventID, pollMillis, nil
}
