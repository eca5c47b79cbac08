package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"hiredalways/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetSyncService mirrors licenses into a Google Sheet, one row per key in
// columns A..I. The sheet is write-only from our side.
type SheetSyncService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	window        time.Duration
	logger        zerolog.Logger
}

// NewSheetSyncService returns nil when sync is disabled. A nil service is safe to call.
func NewSheetSyncService(ctx context.Context, enableSync bool, credentialPath, spreadsheetID, sheetName string, window time.Duration, logger zerolog.Logger) (*SheetSyncService, error) {
	if !enableSync {
		return nil, nil
	}

	// read the credentials file
	b, err := os.ReadFile(credentialPath)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}

	// authorize as the service account
	creds, err := google.CredentialsFromJSON(ctx, b, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("load sheets credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	return NewSheetSyncWithService(srv, spreadsheetID, sheetName, window, logger), nil
}

// NewSheetSyncWithService wraps an already configured sheets client.
func NewSheetSyncWithService(srv *sheets.Service, spreadsheetID, sheetName string, window time.Duration, logger zerolog.Logger) *SheetSyncService {
	return &SheetSyncService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		window:        window,
		logger:        logger.With().Str("component", "sheetsync").Logger(),
	}
}

func (s *SheetSyncService) row(license model.License) []interface{} {
	return []interface{}{
		license.Key,
		strconv.FormatBool(license.Active),
		license.UserID,
		formatSheetTime(license.StartDate.Time),
		formatSheetTime(license.ExpiresAt(s.window)),
		license.PaymentMethod,
		license.PaypalSubscriptionID,
		license.Plan,
		formatSheetTime(license.CreatedAt.Time),
	}
}

func formatSheetTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// SyncLicense updates the row holding license.Key, or appends one.
func (s *SheetSyncService) SyncLicense(ctx context.Context, license model.License) error {
	if s == nil {
		return nil
	}

	// make sure the sheet exists first
	spreadsheet, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	sheetExists := false
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == s.sheetName {
			sheetExists = true
			break
		}
	}
	if !sheetExists {
		return fmt.Errorf("sheet %q does not exist", s.sheetName)
	}

	// look for an existing row with this key
	keyResp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!A2:A").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read sheet keys: %w", err)
	}
	rowIndex := 0
	for i, row := range keyResp.Values {
		if len(row) > 0 && fmt.Sprint(row[0]) == license.Key {
			rowIndex = i + 2 // data starts at A2
			break
		}
	}

	values := &sheets.ValueRange{Values: [][]interface{}{s.row(license)}}
	if rowIndex > 0 {
		rangeData := fmt.Sprintf("%s!A%d:I%d", s.sheetName, rowIndex, rowIndex)
		_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, values).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
	} else {
		_, err = s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetName+"!A2:I", values).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
	}
	if err != nil {
		return fmt.Errorf("write sheet row: %w", err)
	}

	s.logger.Debug().Str("license_key", license.Key).Bool("updated", rowIndex > 0).Msg("License synced to sheet")
	return nil
}

// SyncLicenseAsync runs SyncLicense in the background and logs failures.
func (s *SheetSyncService) SyncLicenseAsync(license model.License) {
	if s == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.SyncLicense(ctx, license); err != nil {
			s.logger.Warn().Err(err).Str("license_key", license.Key).Msg("Sheet sync failed")
		}
	}()
}

// BatchSyncLicenses clears the data rows and writes every license.
func (s *SheetSyncService) BatchSyncLicenses(ctx context.Context, licenses []model.License) error {
	if s == nil {
		return nil
	}

	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, s.sheetName+"!A2:I", &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}
	if len(licenses) == 0 {
		return nil
	}

	values := make([][]interface{}, 0, len(licenses))
	for _, license := range licenses {
		values = append(values, s.row(license))
	}
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.sheetName+"!A2:I", &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("batch write sheet: %w", err)
	}

	s.logger.Info().Int("licenses", len(licenses)).Msg("Batch synced licenses to sheet")
	return nil
}
