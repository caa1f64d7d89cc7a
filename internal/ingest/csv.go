// internal/ingest/csv.go
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CSVNormalizer reads the distributor's monthly commission export. Column
// headers follow the upstream spreadsheet ("IDPOS", "COMISION FINAL",
// "MES LIQUIDACION", ...); month columns carry month names in the configured
// locale ("enero 2025"). The locale is an explicit constructor parameter, not
// process-wide state.
type CSVNormalizer struct {
	monthNames map[string]time.Month
}

var monthTables = map[string]map[string]time.Month{
	"es": {
		"enero": time.January, "febrero": time.February, "marzo": time.March,
		"abril": time.April, "mayo": time.May, "junio": time.June,
		"julio": time.July, "agosto": time.August, "septiembre": time.September,
		"octubre": time.October, "noviembre": time.November, "diciembre": time.December,
	},
	"en": {
		"january": time.January, "february": time.February, "march": time.March,
		"april": time.April, "may": time.May, "june": time.June,
		"july": time.July, "august": time.August, "september": time.September,
		"october": time.October, "november": time.November, "december": time.December,
	},
}

func NewCSVNormalizer(locale string) *CSVNormalizer {
	table, ok := monthTables[strings.ToLower(locale)]
	if !ok {
		table = monthTables["es"]
	}
	return &CSVNormalizer{monthNames: table}
}

func (n *CSVNormalizer) Normalize(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open commission file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse commission file: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("commission file has no data rows")
	}

	columns := indexColumns(records[0])
	if _, ok := columns["idpos"]; !ok {
		return nil, fmt.Errorf("commission file is missing the IDPOS column")
	}

	var rows []Row
	for _, record := range records[1:] {
		get := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		iccid := get("iccid")
		product := get("producto")
		posID := get("idpos")
		pointOfSale := get("punto de venta")

		if iccid == "" && product == "" && posID == "" && pointOfSale == "" {
			continue
		}

		// Rows without ICCID and product are carried-over balance lines: they
		// only need a POS and enter as accumulated credit.
		balanceLine := iccid == "" && product == ""
		if balanceLine {
			if posID == "" {
				continue
			}
		} else if iccid == "" || product == "" {
			continue
		}

		amount, err := decimal.NewFromString(strings.ReplaceAll(get("comision final"), ",", ""))
		if err != nil || amount.IsNegative() {
			continue
		}

		payMode := strings.ToLower(get("pago"))

		rows = append(rows, Row{
			POSID:             posID,
			PointOfSale:       pointOfSale,
			Route:             get("ruta"),
			Product:           product,
			ICCID:             iccid,
			AdvisorIdentifier: get("asesor"),
			Amount:            amount,
			LiquidationMonth:  n.parseMonth(get("mes liquidacion")),
			PaymentMonth:      n.parseMonth(get("mes pago")),
			AccruedHint:       balanceLine || strings.Contains(payMode, "acumulado"),
		})
	}

	return rows, nil
}

func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		// The export is inconsistent about accents on "liquidación".
		key = strings.ReplaceAll(key, "ó", "o")
		columns[key] = i
	}
	return columns
}

// parseMonth parses "enero 2025" style values into the first day of the
// month, or nil when the value is empty or unparseable.
func (n *CSVNormalizer) parseMonth(value string) *time.Time {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return nil
	}

	// Plain YYYY-MM is accepted too.
	if t, err := time.Parse("2006-01", value); err == nil {
		return &t
	}

	parts := strings.Fields(value)
	if len(parts) != 2 {
		return nil
	}
	month, ok := n.monthNames[parts[0]]
	if !ok {
		return nil
	}
	year, err := time.Parse("2006", parts[1])
	if err != nil {
		return nil
	}

	t := time.Date(year.Year(), month, 1, 0, 0, 0, 0, time.UTC)
	return &t
}
