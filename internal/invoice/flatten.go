package invoice

import (
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Flattener expands invoice records into one row per line item.
type Flattener struct {
	logger *slog.Logger
}

func NewFlattener(logger *slog.Logger) *Flattener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flattener{logger: logger}
}

// Flatten emits rows in invoice order, then item order. An invoice without items
// still yields exactly one row whose item fields are the sentinel. source names the
// originating document and is recorded by base name.
func (f *Flattener) Flatten(records []Record, source string) []FlatRow {
	base := constants.NotAvailable
	if source != "" {
		base = filepath.Base(source)
	}

	var rows []FlatRow
	for _, rec := range records {
		items := rec.Items
		if len(items) == 0 {
			items = []LineItem{EmptyItem()}
		}
		for _, it := range items {
			rows = append(rows, FlatRow{
				CompanyName:   rec.CompanyName,
				InvoiceNumber: rec.InvoiceNumber,
				InvoiceDate:   rec.InvoiceDate,
				FSSAINumber:   rec.FSSAINumber,
				Description:   it.Description,
				HSNCode:       it.HSNCode,
				Quantity:      it.Quantity,
				Weight:        f.weight(it.Weight),
				Rate:          it.Rate,
				Amount:        it.Amount,
				SourceFile:    base,
			})
		}
	}
	return rows
}

func (f *Flattener) weight(text string) Weight {
	if text == constants.NotAvailable {
		return Weight{Raw: text}
	}
	kg, ok := NormalizeWeight(text, f.logger)
	if !ok {
		f.logger.Debug("invoice.weight.kept_raw", "weight", text)
		return Weight{Raw: text}
	}
	return Weight{Kilograms: &kg}
}
