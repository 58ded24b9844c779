package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"

	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

// Sentinel errors, matched with errors.Is.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("row not found")

	// ErrTransactionConflict is a SurrealDB transaction conflict from
	// concurrent writers. Callers may retry.
	ErrTransactionConflict = errors.New("transaction conflict")
)

// activeJobMarker is thrown inside the job-create transaction when the
// current row still holds the active slot.
const activeJobMarker = "active job exists"

// wrapQueryError maps recognizable SurrealDB query errors onto the
// package sentinels; anything else passes through unchanged.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		if strings.Contains(msg, activeJobMarker) {
			return fmt.Errorf("%w: %s", vsync.ErrJobConflict, msg)
		}
		if strings.Contains(msg, "Transaction conflict") {
			return fmt.Errorf("%w: %s", ErrTransactionConflict, msg)
		}
	}

	return err
}
