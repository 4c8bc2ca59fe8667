package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"parcelhop/internal/domain"
	"parcelhop/internal/domain/models"
	"parcelhop/internal/repositories"
	"parcelhop/internal/utils"
)

// DocsService renders the shipping label and the delivery receipt of a
// transaction as PDF. The delivery code never appears on either document.
type DocsService struct {
	Transactions repositories.TransactionRepository
	Packages     repositories.PackageRepository
	Trips        repositories.TripRepository
	Users        repositories.UserRepository
	Now          func() time.Time
	Loader       func(ctx context.Context, txID domain.ID) (transactionDocData, error)
}

type transactionDocData struct {
	Tx           models.Transaction
	ShipperName  string
	TravelerName string
	Contents     string
	Weight       models.Grams
	RouteFrom    string
	RouteTo      string
	DepartureAt  time.Time
}

// GenerateShippingLabel is available once the transaction has been paid.
func (s DocsService) GenerateShippingLabel(ctx context.Context, rc domain.RequestContext, txID domain.ID) ([]byte, string, error) {
	d, err := s.load(ctx, rc, txID)
	if err != nil {
		return nil, "", err
	}
	switch d.Tx.Status {
	case models.TxPaid, models.TxPickedUp, models.TxInTransit, models.TxDelivered, models.TxCompleted:
	default:
		return nil, "", domain.InvalidState("transaction", string(d.Tx.Status), "print label")
	}
	utils.LogEvent(ctx, "docs", "generate_label", "shipping label rendered", "transaction_id", txID.String())
	return buildLabelPDF(d)
}

// GenerateReceipt is available once the package has been delivered.
func (s DocsService) GenerateReceipt(ctx context.Context, rc domain.RequestContext, txID domain.ID) ([]byte, string, error) {
	d, err := s.load(ctx, rc, txID)
	if err != nil {
		return nil, "", err
	}
	if d.Tx.Status != models.TxDelivered && d.Tx.Status != models.TxCompleted {
		return nil, "", domain.InvalidState("transaction", string(d.Tx.Status), "print receipt")
	}
	utils.LogEvent(ctx, "docs", "generate_receipt", "delivery receipt rendered", "transaction_id", txID.String())
	return buildReceiptPDF(d, nowOr(s.Now))
}

func (s DocsService) load(ctx context.Context, rc domain.RequestContext, txID domain.ID) (transactionDocData, error) {
	var (
		d   transactionDocData
		err error
	)
	if s.Loader != nil {
		d, err = s.Loader(ctx, txID)
	} else {
		d, err = s.loadFromRepos(ctx, txID)
	}
	if err != nil {
		return transactionDocData{}, err
	}
	if err := authorizeParty(rc, d.Tx); err != nil {
		return transactionDocData{}, err
	}
	return d, nil
}

func (s DocsService) loadFromRepos(ctx context.Context, txID domain.ID) (transactionDocData, error) {
	tx, err := s.Transactions.GetByID(ctx, txID)
	if err != nil {
		return transactionDocData{}, err
	}
	out := transactionDocData{Tx: tx}
	if pkg, err := s.Packages.GetByID(ctx, tx.PackageID); err == nil {
		out.Contents = pkg.Contents
		out.Weight = pkg.Weight
	}
	if trip, err := s.Trips.GetByID(ctx, tx.TripID); err == nil {
		out.RouteFrom = strings.TrimSpace(trip.DepartureCity + " " + trip.DepartureCountry)
		out.RouteTo = strings.TrimSpace(trip.ArrivalCity + " " + trip.ArrivalCountry)
		out.DepartureAt = trip.DepartureAt
	}
	if u, err := s.Users.GetByID(ctx, tx.ShipperID); err == nil {
		out.ShipperName = u.Name
	}
	if u, err := s.Users.GetByID(ctx, tx.TravelerID); err == nil {
		out.TravelerName = u.Name
	}
	return out, nil
}

func buildLabelPDF(d transactionDocData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle("Shipping label", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 9, "PARCELHOP")
	pdf.Ln(11)

	pdf.SetFont("Helvetica", "", 10)
	lines := []string{
		"Ref      : " + shortRef(d.Tx.ID),
		fmt.Sprintf("Route    : %s -> %s", safe(d.RouteFrom, "-"), safe(d.RouteTo, "-")),
		"Departs  : " + formatDocTime(d.DepartureAt),
		"Shipper  : " + safe(d.ShipperName, d.Tx.ShipperID.String()),
		"Traveler : " + safe(d.TravelerName, d.Tx.TravelerID.String()),
		"Contents : " + safe(d.Contents, "-"),
		fmt.Sprintf("Weight   : %.2f kg", d.Weight.Kg()),
	}
	for _, l := range lines {
		pdf.Cell(0, 6, l)
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(0, 4, "Hand over only against the recipient's delivery code.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("LABEL_%s.pdf", safeFilenamePart(shortRef(d.Tx.ID))), nil
}

func buildReceiptPDF(d transactionDocData, issued time.Time) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Delivery receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "DELIVERY RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Receipt no : RCP-"+shortRef(d.Tx.ID))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Issued     : "+formatDocTime(issued))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Delivered  : "+formatDocTime(derefTime(d.Tx.DeliveredAt)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Parties")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Shipper  : "+safe(d.ShipperName, d.Tx.ShipperID.String()))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Traveler : "+safe(d.TravelerName, d.Tx.TravelerID.String()))
	pdf.Ln(10)

	desc := fmt.Sprintf("%s, %.2f kg, %s -> %s", safe(d.Contents, "-"), d.Weight.Kg(),
		safe(d.RouteFrom, "-"), safe(d.RouteTo, "-"))
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, desc, "", "", false)
	pdf.Ln(2)

	pdf.Cell(0, 6, "Agreed price    : "+utils.FormatMoney(int64(d.Tx.AgreedPrice)))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Platform fee    : "+utils.FormatMoney(int64(d.Tx.PlatformFee)))
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Traveler payout : "+utils.FormatMoney(int64(d.Tx.TravelerPayout)))
	pdf.Ln(10)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("RECEIPT_%s.pdf", safeFilenamePart(shortRef(d.Tx.ID))), nil
}

func shortRef(id domain.ID) string {
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:12])
}

func formatDocTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return utils.FormatDateTime(t) + " UTC"
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
