package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
)

func TestDocsServiceGenerate(t *testing.T) {
	shipper := uuid.New()
	delivered := time.Date(2025, 6, 4, 18, 30, 0, 0, time.UTC)
	loader := func(_ context.Context, id domain.ID) (transactionDocData, error) {
		return transactionDocData{
			Tx: models.Transaction{
				ID:             id,
				ShipperID:      shipper,
				TravelerID:     uuid.New(),
				AgreedPrice:    6400,
				PlatformFee:    768,
				TravelerPayout: 5632,
				Status:         models.TxDelivered,
				DeliveredAt:    &delivered,
			},
			ShipperName:  "Tester",
			TravelerName: "Driver",
			Contents:     "books",
			Weight:       8000,
			RouteFrom:    "Paris FR",
			RouteTo:      "Casablanca MA",
			DepartureAt:  delivered.Add(-48 * time.Hour),
		}, nil
	}

	svc := DocsService{Loader: loader}
	rc := domain.RequestContext{UserID: shipper}

	pdf, filename, err := svc.GenerateShippingLabel(context.Background(), rc, uuid.New())
	if err != nil {
		t.Fatalf("GenerateShippingLabel returned error: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) || !strings.HasPrefix(filename, "LABEL_") {
		t.Fatalf("GenerateShippingLabel returned unexpected data: %q", filename)
	}

	receipt, name, err := svc.GenerateReceipt(context.Background(), rc, uuid.New())
	if err != nil {
		t.Fatalf("GenerateReceipt returned error: %v", err)
	}
	if len(receipt) == 0 || !strings.HasSuffix(name, ".pdf") {
		t.Fatalf("GenerateReceipt returned empty data")
	}

	if _, _, err := svc.GenerateReceipt(context.Background(), domain.RequestContext{UserID: uuid.New()}, uuid.New()); !domain.IsForbidden(err) {
		t.Fatalf("expected forbidden for a stranger, got %v", err)
	}
}

func TestDocsServiceStatusGates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	trip := h.trip(t, 15)

	res, err := h.escrow.Create(ctx, h.shipper, h.pkg(t, 2).ID, trip.ID, 1600)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := h.docs.GenerateShippingLabel(ctx, h.shipper, res.Transaction.ID); !domain.IsConflict(err) {
		t.Fatalf("label before payment: expected conflict, got %v", err)
	}

	tx, _ := h.paid(t, trip)
	if _, _, err := h.docs.GenerateShippingLabel(ctx, h.traveler, tx.ID); err != nil {
		t.Fatalf("label after payment: %v", err)
	}
	if _, _, err := h.docs.GenerateReceipt(ctx, h.shipper, tx.ID); !domain.IsConflict(err) {
		t.Fatalf("receipt before delivery: expected conflict, got %v", err)
	}

	done := h.completed(t, h.trip(t, 15))
	if _, _, err := h.docs.GenerateReceipt(ctx, h.shipper, done.ID); err != nil {
		t.Fatalf("receipt after completion: %v", err)
	}
}
