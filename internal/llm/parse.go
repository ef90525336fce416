package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

// Parser turns a completion into invoice records.
type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

var fenceStripper = strings.NewReplacer("```json", "", "```JSON", "", "```", "")

// Parse strips code fences, takes the span from the first '[' to the last ']' and
// decodes it. Every failure wraps common.ErrMalformedResponse. Missing or empty fields
// become constants.NotAvailable; numbers keep their printed digits.
func (p *Parser) Parse(completion string) ([]invoice.Record, error) {
	cleaned := fenceStripper.Replace(completion)
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end < start {
		p.logger.Warn("llm.parse.no_array", "completion_len", len(completion))
		return nil, fmt.Errorf("%w: no JSON array in completion", common.ErrMalformedResponse)
	}
	payload := cleaned[start : end+1]

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		p.logger.Warn("llm.parse.decode_error", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		p.logger.Warn("llm.parse.trailing_data", "payload_len", len(payload))
		return nil, fmt.Errorf("%w: trailing data after JSON array", common.ErrMalformedResponse)
	}

	v = normalizeKeys(v)

	schema, err := invoiceSchema()
	if err != nil {
		return nil, fmt.Errorf("invoice schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		p.logger.Warn("llm.parse.schema_mismatch", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	arr, _ := v.([]any)
	records := make([]invoice.Record, 0, len(arr))
	for _, el := range arr {
		obj, _ := el.(map[string]any)
		records = append(records, toRecord(obj))
	}
	p.logger.Debug("llm.parse.ok", "invoices", len(records))
	return records, nil
}

func toRecord(obj map[string]any) invoice.Record {
	rec := invoice.Record{
		CompanyName:   field(obj["company_name"]),
		InvoiceNumber: field(obj["invoice_number"]),
		InvoiceDate:   field(obj["invoice_date"]),
		FSSAINumber:   field(obj["fssai_number"]),
	}
	items, _ := obj["items"].([]any)
	for _, it := range items {
		m, _ := it.(map[string]any)
		rec.Items = append(rec.Items, invoice.LineItem{
			Description: field(m["description"]),
			HSNCode:     field(m["hsn_code"]),
			Quantity:    field(m["quantity"]),
			Weight:      field(m["weight"]),
			Rate:        field(m["rate"]),
			Amount:      field(m["amount"]),
		})
	}
	return rec
}

func field(v any) string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return s
		}
	case json.Number:
		return t.String()
	}
	return constants.NotAvailable
}

var invoiceAliases = map[string]string{
	"company":              "company_name",
	"seller_name":          "company_name",
	"supplier_name":        "company_name",
	"vendor_name":          "company_name",
	"invoice_no":           "invoice_number",
	"invoice_num":          "invoice_number",
	"bill_no":              "invoice_number",
	"date":                 "invoice_date",
	"bill_date":            "invoice_date",
	"fssai":                "fssai_number",
	"fssai_no":             "fssai_number",
	"fssai_license_number": "fssai_number",
	"line_items":           "items",
	"products":             "items",
	"goods":                "items",
}

var itemAliases = map[string]string{
	"goods_description": "description",
	"item_description":  "description",
	"product":           "description",
	"item":              "description",
	"hsn":               "hsn_code",
	"hsn_sac":           "hsn_code",
	"hsn_sac_code":      "hsn_code",
	"hsn/sac":           "hsn_code",
	"qty":               "quantity",
	"wt":                "weight",
	"net_weight":        "weight",
	"price":             "rate",
	"unit_price":        "rate",
	"total":             "amount",
	"line_total":        "amount",
}

// normalizeKeys renames the spellings models commonly drift to. Canonical keys win
// over aliases when both are present.
func normalizeKeys(v any) any {
	arr, ok := v.([]any)
	if !ok {
		return v
	}
	for i, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		obj = renameKeys(obj, invoiceAliases)
		if items, ok := obj["items"].([]any); ok {
			for j, it := range items {
				if m, ok := it.(map[string]any); ok {
					items[j] = renameKeys(m, itemAliases)
				}
			}
		}
		arr[i] = obj
	}
	return arr
}

func renameKeys(m map[string]any, aliases map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		key := strings.ToLower(strings.TrimSpace(k))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		if canon, ok := aliases[key]; ok {
			if _, exists := out[canon]; exists {
				continue
			}
			key = canon
		}
		out[key] = v
	}
	return out
}
