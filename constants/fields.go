package constants

// NotAvailable marks any field that is absent or ambiguous in the source text.
const NotAvailable = "N/A"

// Column names of the persisted table, in the order new tables are created.
const (
	ColCompanyName   = "company_name"
	ColInvoiceNumber = "invoice_number"
	ColInvoiceDate   = "invoice_date"
	ColFSSAINumber   = "fssai_number"
	ColDescription   = "description"
	ColHSNCode       = "hsn_code"
	ColQuantity      = "quantity"
	ColWeight        = "weight"
	ColRate          = "rate"
	ColAmount        = "amount"
	ColSourceFile    = "source_file"
)

// Columns is the default column order of a freshly created table.
var Columns = []string{
	ColCompanyName,
	ColInvoiceNumber,
	ColInvoiceDate,
	ColFSSAINumber,
	ColDescription,
	ColHSNCode,
	ColQuantity,
	ColWeight,
	ColRate,
	ColAmount,
	ColSourceFile,
}
