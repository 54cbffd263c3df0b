// Package id generates module run identifiers. Run IDs are ULIDs, so they
// sort by the time the run started.
package id

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mutex   sync.Mutex
	entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewRunID returns a run ID for a run started at t. IDs generated for the same
// millisecond are strictly increasing.
func NewRunID(t time.Time) (string, error) {
	mutex.Lock()
	defer mutex.Unlock()

	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// StartTime returns the time encoded in a run ID.
func StartTime(runID string) (time.Time, error) {
	id, err := ulid.ParseStrict(runID)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(id.Time()), nil
}

func IsValid(runID string) bool {
	_, err := ulid.ParseStrict(runID)
	return err == nil
}
