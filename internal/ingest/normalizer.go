// internal/ingest/normalizer.go
package ingest

import (
	"time"

	"github.com/shopspring/decimal"
)

// Row is the canonical shape of one ingested commission line, already
// normalized from whatever spreadsheet layout the distributor sends. The
// engine trusts this shape and does no spreadsheet parsing of its own.
type Row struct {
	POSID             string
	PointOfSale       string
	Route             string
	Product           string
	ICCID             string
	AdvisorIdentifier string
	Amount            decimal.Decimal
	LiquidationMonth  *time.Time
	PaymentMonth      *time.Time
	// AccruedHint marks rows that enter as accumulated credit rather than
	// collectable debt ("acumulado" payment mode in the source files).
	AccruedHint bool
}

// Normalizer turns an uploaded commission file into canonical rows.
type Normalizer interface {
	Normalize(path string) ([]Row, error)
}
