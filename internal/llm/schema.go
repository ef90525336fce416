package llm

// scalarProp accepts what models emit for text fields; anything else is a shape mismatch.
func scalarProp() map[string]any {
	return map[string]any{"type": []string{"string", "number", "null"}}
}

// BuildInvoiceArraySchema returns the JSON-Schema (draft 2020-12 subset) the decoded
// payload must satisfy: an array of invoice objects with optional nested items.
// Unknown keys are tolerated and dropped during mapping.
func BuildInvoiceArraySchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": scalarProp(),
			"hsn_code":    scalarProp(),
			"quantity":    scalarProp(),
			"weight":      scalarProp(),
			"rate":        scalarProp(),
			"amount":      scalarProp(),
		},
	}
	inv := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"company_name":   scalarProp(),
			"invoice_number": scalarProp(),
			"invoice_date":   scalarProp(),
			"fssai_number":   scalarProp(),
			"items": map[string]any{
				"type":  []string{"array", "null"},
				"items": item,
			},
		},
	}
	return map[string]any{
		"type":  "array",
		"items": inv,
	}
}
