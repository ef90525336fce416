package llm

import (
	"strings"
)

// BuildPrompt embeds the document text in the extraction instructions. plain swaps the
// currency glyph examples for ASCII spellings; it is used by the degraded retry.
func BuildPrompt(text string, plain bool) string {
	currencies := "₹, $, €"
	if plain {
		currencies = "Rs., USD, EUR"
	}

	parts := []string{
		"You are an expert in extracting structured data from invoices, even when the text is messy or unstructured.",
		"Extract every invoice present in the text below.",
		"",
		"For each invoice extract:",
		"- company_name: the name of the company issuing the invoice, exactly as written.",
		"- invoice_number: the exact alphanumeric invoice number.",
		"- invoice_date: the date of the invoice in DD/MM/YYYY format.",
		"- fssai_number: the FSSAI number if present. If two FSSAI numbers are present, take only the buyer's.",
		"- items: one object per product line with:",
		"  - description: the goods description, exact wording.",
		"  - hsn_code: the HSN or SAC code as printed.",
		"  - quantity: only the numeric quantity; if unclear, the first numeric value.",
		"  - weight: the weight including its unit (kg, qtl, tons) as written.",
		"  - rate: the monetary rate for ONE unit (e.g. " + currencies + "), never a weight, quantity or line total.",
		"  - amount: the total monetary amount of the line, never the invoice grand total.",
		"",
		"Rules:",
		`- If a field is missing or unclear, set it to "N/A". Do not infer or guess values.`,
		"- Retain the exact wording, units and formatting used in the text.",
		"- If the text contains several invoices, return a separate object for each invoice.",
		"- Ignore irrelevant noise.",
		"",
		"Output contract:",
		"Return ONLY a JSON array of invoice objects with exactly these field names:",
		`[{"company_name": "...", "invoice_number": "...", "invoice_date": "DD/MM/YYYY", "fssai_number": "...",` +
			` "items": [{"description": "...", "hsn_code": "...", "quantity": "...", "weight": "...", "rate": "...", "amount": "..."}]}]`,
		"",
		"Text:",
		text,
	}
	return strings.Join(parts, "\n")
}
