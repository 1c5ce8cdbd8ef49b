// Package export writes shareholder lists to Google Sheets.
package export

import (
	"context"
	"fmt"
	"sacrifice-website/models"
	"sort"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	DefaultSheet = "Hissedarlar"
	istanbulTZ   = "Europe/Istanbul"
)

var header = []interface{}{
	"Kurban No", "Kesim Saati", "Hissedar", "Telefon", "Teslimat", "Teslimat Yeri",
	"Hisse Bedeli", "Teslimat Ücreti", "Toplam", "Ödenen", "Kalan",
	"Vekalet", "Satın Alma", "İşlem No",
}

// SheetsExporter overwrites one tab of a spreadsheet with every shareholder
type SheetsExporter struct {
	service       *sheets.Service
	spreadsheetID string
	sheet         string
	loc           *time.Location
}

// NewSheetsExporter authenticates with a service account key file. Extra
// options are appended after the credentials.
func NewSheetsExporter(ctx context.Context, credentialsPath, spreadsheetID string, opts ...option.ClientOption) (*SheetsExporter, error) {
	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if credentialsPath != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsPath))
	}
	clientOpts = append(clientOpts, opts...)

	srv, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	loc, err := time.LoadLocation(istanbulTZ)
	if err != nil {
		loc = time.FixedZone("TRT", 3*60*60)
	}

	return &SheetsExporter{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheet:         DefaultSheet,
		loc:           loc,
	}, nil
}

// ExportShareholders replaces the sheet contents and returns the number of
// shareholder rows written.
func (e *SheetsExporter) ExportShareholders(ctx context.Context, shareholders []models.Shareholder, animals []models.SacrificeAnimal) (int, error) {
	rows := e.rows(shareholders, animals)

	if _, err := e.service.Spreadsheets.Values.
		Clear(e.spreadsheetID, e.sheet+"!A:Z", &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("clear sheet: %w", err)
	}

	if _, err := e.service.Spreadsheets.Values.
		Update(e.spreadsheetID, e.sheet+"!A1", &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("write sheet: %w", err)
	}

	return len(rows) - 1, nil
}

// rows sorts by sacrifice number then purchase time and prepends the header
func (e *SheetsExporter) rows(shareholders []models.Shareholder, animals []models.SacrificeAnimal) [][]interface{} {
	byID := make(map[string]models.SacrificeAnimal, len(animals))
	for _, a := range animals {
		byID[a.ID] = a
	}

	sorted := make([]models.Shareholder, len(shareholders))
	copy(sorted, shareholders)
	sort.SliceStable(sorted, func(i, j int) bool {
		ni, nj := byID[sorted[i].SacrificeID].No, byID[sorted[j].SacrificeID].No
		if ni != nj {
			return ni < nj
		}
		return sorted[i].PurchaseTime.Before(sorted[j].PurchaseTime)
	})

	out := make([][]interface{}, 0, len(sorted)+1)
	out = append(out, header)
	for _, sh := range sorted {
		animal := byID[sh.SacrificeID]
		consent := "Hayır"
		if sh.SacrificeConsent {
			consent = "Evet"
		}
		out = append(out, []interface{}{
			animal.No,
			animal.Time,
			sh.Name,
			sh.PhoneNumber,
			string(sh.DeliveryType),
			sh.DeliveryLocation,
			sh.SharePrice,
			sh.DeliveryFee,
			sh.TotalAmount,
			sh.PaidAmount,
			sh.RemainingPayment,
			consent,
			sh.PurchaseTime.In(e.loc).Format("02.01.2006 15:04"),
			sh.TransactionID,
		})
	}
	return out
}
