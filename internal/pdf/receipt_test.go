package pdf

import (
	"strings"
	"testing"
)

func TestSaleReceiptProducesPDF(t *testing.T) {
	data := ReceiptData{
		Code:     "VNT-000001",
		Date:     "2026-08-27",
		Customer: "Ana García",
		Email:    "ana@example.com",
		Lines: []ReceiptLine{
			{Description: "Teclado mecánico", Quantity: "2", UnitPrice: "$25.50", Subtotal: "$51.00"},
			{Description: "Ratón", Quantity: "3", UnitPrice: "$3.00", Subtotal: "$9.00"},
		},
		Total: "$60.00",
	}
	b, err := SaleReceipt(data)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(string(b), "%PDF") {
		t.Fatalf("expected a PDF document, got %q...", string(b[:min(len(b), 8)]))
	}
	if len(b) < 500 {
		t.Fatalf("suspiciously small PDF: %d bytes", len(b))
	}
}

func TestSaleReceiptEmptyLines(t *testing.T) {
	b, err := SaleReceipt(ReceiptData{Code: "VNT-000002", Customer: "Ana", Total: "$0.00"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(string(b), "%PDF") {
		t.Fatalf("expected a PDF document")
	}
}
