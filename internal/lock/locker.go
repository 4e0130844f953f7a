// Package lock serializes writers that touch the same (sub-field, date) slot space.
package lock

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"

	"gorm.io/gorm"
)

// Key identifies the slot space of one sub-field on one calendar date.
type Key struct {
	SubFieldID int64
	Date       string
}

func (k Key) String() string {
	return fmt.Sprintf("subfield:%d:%s", k.SubFieldID, k.Date)
}

// Hash maps the key onto the int64 space used by postgres advisory locks.
func (k Key) Hash() int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(k.String()))
	return int64(h.Sum64())
}

// Unlock releases whatever Lock acquired. It is safe to call more than once.
type Unlock func()

// Locker acquires all keys, in sorted order, for the duration of a transaction.
// tx is the transaction handle the caller is about to check and write with.
type Locker interface {
	Lock(ctx context.Context, tx *gorm.DB, keys ...Key) (Unlock, error)
}

// Sorted returns the distinct keys ordered by (sub-field, date).
func Sorted(keys []Key) []Key {
	seen := make(map[Key]struct{}, len(keys))
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubFieldID != out[j].SubFieldID {
			return out[i].SubFieldID < out[j].SubFieldID
		}
		return out[i].Date < out[j].Date
	})
	return out
}

func noop() {}
