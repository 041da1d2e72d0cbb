package export

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Transactions"

var columnWidths = []float64{12, 20, 20, 14, 24, 40}

// XLSX renders rows as a single-sheet workbook with the CSV columns. The
// amount column holds numbers formatted with the currency's fraction digits.
func XLSX(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
	}

	for i, h := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(Header), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	amountStyles := map[int]int{}
	for i, r := range rows {
		line := i + 2
		fraction := CurrencyFraction(r.Currency)
		values := []any{
			r.OccurredOn.String(),
			r.Account,
			r.Category,
			r.Amount.Decimal(fraction).InexactFloat64(),
			strings.Join(r.Tags, TagSeparator),
			r.Note,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, line)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", i, err)
			}
		}

		style, ok := amountStyles[fraction]
		if !ok {
			format := "0"
			if fraction > 0 {
				format += "." + strings.Repeat("0", fraction)
			}
			if style, err = f.NewStyle(&excelize.Style{CustomNumFmt: &format}); err != nil {
				return nil, fmt.Errorf("amount style: %w", err)
			}
			amountStyles[fraction] = style
		}
		cell, _ := excelize.CoordinatesToCellName(4, line)
		if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return nil, fmt.Errorf("style row %d: %w", i, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// CurrencyFraction is the number of minor-unit digits of an ISO 4217 code,
// 2 when the code is unknown.
func CurrencyFraction(code string) int {
	if cur := money.GetCurrency(strings.ToUpper(code)); cur != nil {
		return cur.Fraction
	}
	return 2
}
