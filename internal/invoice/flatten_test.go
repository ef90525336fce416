package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

func sampleRecord(items ...LineItem) Record {
	return Record{
		CompanyName:   "Shree Traders",
		InvoiceNumber: "INV-42",
		InvoiceDate:   "01/02/2024",
		FSSAINumber:   "12345678901234",
		Items:         items,
	}
}

func TestFlatten_OneRowPerItem(t *testing.T) {
	rec := sampleRecord(
		LineItem{Description: "Wheat", HSNCode: "1001", Quantity: "10", Weight: "5 qtl", Rate: "2000", Amount: "20000"},
		LineItem{Description: "Rice", HSNCode: "1006", Quantity: "4", Weight: "2 tons", Rate: "3000", Amount: "12000"},
		LineItem{Description: "Dal", HSNCode: "0713", Quantity: "1", Weight: "N/A", Rate: "90", Amount: "90"},
	)

	rows := NewFlattener(nil).Flatten([]Record{rec}, "/in/a.pdf")
	require.Len(t, rows, 3)

	for _, r := range rows {
		assert.Equal(t, rec.CompanyName, r.CompanyName)
		assert.Equal(t, rec.InvoiceNumber, r.InvoiceNumber)
		assert.Equal(t, rec.InvoiceDate, r.InvoiceDate)
		assert.Equal(t, rec.FSSAINumber, r.FSSAINumber)
		assert.Equal(t, "a.pdf", r.SourceFile)
	}
	assert.Equal(t, []string{"Wheat", "Rice", "Dal"}, []string{rows[0].Description, rows[1].Description, rows[2].Description})
	assert.Equal(t, 500.0, rows[0].Weight.Value())
	assert.Equal(t, 2000.0, rows[1].Weight.Value())
	assert.Equal(t, constants.NotAvailable, rows[2].Weight.Value())
}

func TestFlatten_NoItemsYieldsPlaceholder(t *testing.T) {
	rows := NewFlattener(nil).Flatten([]Record{sampleRecord()}, "b.pdf")
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, "INV-42", r.InvoiceNumber)
	for _, v := range []string{r.Description, r.HSNCode, r.Quantity, r.Rate, r.Amount} {
		assert.Equal(t, constants.NotAvailable, v)
	}
	assert.Equal(t, constants.NotAvailable, r.Weight.Value())
}

func TestFlatten_OrderAcrossInvoices(t *testing.T) {
	a := sampleRecord(LineItem{Description: "a1"}, LineItem{Description: "a2"})
	a.InvoiceNumber = "A"
	b := sampleRecord()
	b.InvoiceNumber = "B"
	c := sampleRecord(LineItem{Description: "c1"})
	c.InvoiceNumber = "C"

	rows := NewFlattener(nil).Flatten([]Record{a, b, c}, "")
	require.Len(t, rows, 4)

	var got []string
	for _, r := range rows {
		got = append(got, r.InvoiceNumber+":"+r.Description)
	}
	assert.Equal(t, []string{"A:a1", "A:a2", "B:N/A", "C:c1"}, got)
}

func TestFlatten_UnparseableWeightKeptRaw(t *testing.T) {
	rows := NewFlattener(nil).Flatten([]Record{sampleRecord(LineItem{Weight: "abc kg"})}, "")
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Weight.Kilograms)
	assert.Equal(t, "abc kg", rows[0].Weight.Value())
}
