package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Record is one invoice found in a document. Absent fields hold constants.NotAvailable.
type Record struct {
	CompanyName   string     `json:"company_name"`
	InvoiceNumber string     `json:"invoice_number"`
	InvoiceDate   string     `json:"invoice_date"` // DD/MM/YYYY as printed
	FSSAINumber   string     `json:"fssai_number"`
	Items         []LineItem `json:"items"`
}

// LineItem is one product line of an invoice.
type LineItem struct {
	Description string `json:"description"`
	HSNCode     string `json:"hsn_code"`
	Quantity    string `json:"quantity"`
	Weight      string `json:"weight"` // value + unit
	Rate        string `json:"rate"`
	Amount      string `json:"amount"`
}

// EmptyItem returns a line item with every field set to the sentinel.
func EmptyItem() LineItem {
	na := constants.NotAvailable
	return LineItem{Description: na, HSNCode: na, Quantity: na, Weight: na, Rate: na, Amount: na}
}

// Weight is a normalised weight cell: Kilograms when the text converted, Raw otherwise.
type Weight struct {
	Kilograms *decimal.Decimal
	Raw       string
}

// Value is what gets written to the table cell.
func (w Weight) Value() any {
	if w.Kilograms != nil {
		f, _ := w.Kilograms.Float64()
		return f
	}
	return w.Raw
}

func (w Weight) String() string {
	if w.Kilograms != nil {
		return w.Kilograms.String()
	}
	return w.Raw
}

// FlatRow is one invoice crossed with one of its line items.
type FlatRow struct {
	CompanyName   string
	InvoiceNumber string
	InvoiceDate   string
	FSSAINumber   string
	Description   string
	HSNCode       string
	Quantity      string
	Weight        Weight
	Rate          string
	Amount        string
	SourceFile    string
}

// Values maps the row onto the table columns.
func (r FlatRow) Values() map[string]any {
	return map[string]any{
		constants.ColCompanyName:   r.CompanyName,
		constants.ColInvoiceNumber: r.InvoiceNumber,
		constants.ColInvoiceDate:   r.InvoiceDate,
		constants.ColFSSAINumber:   r.FSSAINumber,
		constants.ColDescription:   r.Description,
		constants.ColHSNCode:       r.HSNCode,
		constants.ColQuantity:      r.Quantity,
		constants.ColWeight:        r.Weight.Value(),
		constants.ColRate:          r.Rate,
		constants.ColAmount:        r.Amount,
		constants.ColSourceFile:    r.SourceFile,
	}
}
