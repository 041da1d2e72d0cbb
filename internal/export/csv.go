// Package export renders transaction rows as CSV and XLSX documents.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"ledger/internal/core"
)

// Header is the fixed CSV column set.
var Header = []string{"occurred_on", "account", "category", "amount", "tags", "note"}

// TagSeparator joins a transaction's tags into one cell.
const TagSeparator = ";"

// Row is one exported transaction with names already resolved.
type Row struct {
	OccurredOn core.Date
	Account    string
	Category   string
	Currency   string
	Amount     core.Money
	Tags       []string
	Note       string
}

// FormatAmount renders a signed amount with the currency's minor-unit
// digits and a dot separator. Unknown currencies use two digits.
func FormatAmount(m core.Money, currency string) string {
	fraction := CurrencyFraction(currency)
	return m.Decimal(fraction).StringFixed(int32(fraction))
}

func (r Row) record() []string {
	return []string{
		r.OccurredOn.String(),
		r.Account,
		r.Category,
		FormatAmount(r.Amount, r.Currency),
		strings.Join(r.Tags, TagSeparator),
		r.Note,
	}
}

// CSV writes the header and one record per row in the given order. Output
// is deterministic: LF line endings and a single trailing newline.
func CSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		if err := w.Write(r.record()); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
