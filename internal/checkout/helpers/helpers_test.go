package helpers

import (
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
)

func int64Ptr(v int64) *int64 { return &v }

func TestComputeQuote(t *testing.T) {
	shirt, hat := uuid.New(), uuid.New()
	prices := map[uuid.UUID]int64{shirt: 150000, hat: 50000}

	q := ComputeQuote([]PricedLine{
		{ProductID: shirt, Quantity: 2, ClientPrice: int64Ptr(150000)},
		{ProductID: hat, Quantity: 1},
	}, prices)
	if q.Total != 350000 || q.Units != 3 {
		t.Fatalf("unexpected quote total=%d units=%d", q.Total, q.Units)
	}
	if len(q.Stale) != 0 {
		t.Fatalf("expected no stale lines, got %+v", q.Stale)
	}
	if !q.TotalMatches(nil) || !q.TotalMatches(int64Ptr(350000)) || q.TotalMatches(int64Ptr(300000)) {
		t.Fatalf("unexpected total matching")
	}
}

func TestComputeQuoteFlagsStalePrice(t *testing.T) {
	shirt := uuid.New()
	q := ComputeQuote([]PricedLine{{ProductID: shirt, Quantity: 1, ClientPrice: int64Ptr(120000)}}, map[uuid.UUID]int64{shirt: 150000})
	if len(q.Stale) != 1 {
		t.Fatalf("expected one stale line, got %+v", q.Stale)
	}
	if q.Stale[0].Expected != 150000 || q.Stale[0].Submitted != 120000 {
		t.Fatalf("unexpected stale line %+v", q.Stale[0])
	}
	if q.UnitPrices[0] != 150000 {
		t.Fatalf("unit price must come from the catalog")
	}
}

func TestValidateLines(t *testing.T) {
	if v := ValidateLines(nil); len(v) != 1 || v[0].Field != "items" {
		t.Fatalf("expected empty cart violation, got %+v", v)
	}
	v := ValidateLines([]LineShape{{ProductID: uuid.New(), Quantity: 1}, {Quantity: 0}})
	if len(v) != 2 || v[0].Field != "items[1].product_id" || v[1].Field != "items[1].quantity" {
		t.Fatalf("unexpected violations %+v", v)
	}
}

func TestValidatePaymentMethod(t *testing.T) {
	method, violation := ValidatePaymentMethod(" qris ")
	if violation != nil || method != enums.PaymentMethodQRIS {
		t.Fatalf("expected QRIS, got %q %+v", method, violation)
	}
	if _, violation := ValidatePaymentMethod(""); violation == nil {
		t.Fatalf("expected missing method violation")
	}
	if _, violation := ValidatePaymentMethod("CRYPTO"); violation == nil {
		t.Fatalf("expected unknown method violation")
	}
}

func TestFormatAddress(t *testing.T) {
	got := FormatAddress(models.Address{
		Recipient:  "Sari",
		Phone:      "0812",
		Street:     "Jl. Merdeka 1",
		City:       "Bandung",
		Province:   "Jawa Barat",
		PostalCode: "40111",
	})
	want := "Sari | 0812\nJl. Merdeka 1, Bandung, Jawa Barat, 40111"
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}
