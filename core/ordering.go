package core

import (
	"context"

	"github.com/pkg/errors"
)

// OrderIndexStore is implemented by repositories of tables with a unique order_index column.
type OrderIndexStore interface {
	// MaxOrderIndex returns the current highest order_index, or -1 when the table is empty.
	MaxOrderIndex(ctx context.Context) (int, error)
}

// SaveWithOrderIndex runs save with the given order_index. When the index is already taken it re-queries
// the current maximum and retries exactly once with max+1. A nil index means "append".
// It returns the order_index that was persisted.
func SaveWithOrderIndex(ctx context.Context, store OrderIndexStore, index *int, save func(orderIndex int) error) (int, error) {
	var idx int
	if index != nil {
		idx = *index
	} else {
		max, err := store.MaxOrderIndex(ctx)
		if err != nil {
			return 0, errors.Wrap(err, "getting max order_index")
		}
		idx = max + 1
	}

	err := save(idx)
	if err == nil {
		return idx, nil
	}
	if errors.Cause(err) != ErrOrderIndexConflict {
		return 0, err
	}

	// one retry at the end of the list
	max, mErr := store.MaxOrderIndex(ctx)
	if mErr != nil {
		return 0, errors.Wrap(mErr, "getting max order_index")
	}
	idx = max + 1
	if err = save(idx); err != nil {
		return 0, err
	}
	return idx, nil
}
