// Package dispatch delivers materialized tables to their destination.
// CSV files are the only built-in destination; the Writer interface keeps
// the engine decoupled from where tables end up.
package dispatch

import (
	"context"

	"github.com/tablelink-labs/tablelink/internal/table"
)

// Writer delivers every table in a store to a destination.
type Writer interface {
	Write(ctx context.Context, store *table.Store) error
}
