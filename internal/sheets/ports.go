// Package sheets defines the outbound port for the spreadsheet backup of
// the transaction ledger.
package sheets

import (
	"context"

	"finbook/internal/core"
)

// TransactionWriter appends one transaction row to the backup spreadsheet
// and returns a reference to the written row.
type TransactionWriter interface {
	Append(ctx context.Context, owner string, t core.Transaction) (rowRef string, err error)
}
