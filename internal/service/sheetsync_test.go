package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"hiredalways/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type sheetCall struct {
	Method string
	Path   string
	Body   string
}

// fakeSheets serves the handful of Sheets API calls the sync uses.
func fakeSheets(t *testing.T, existingKeys ...string) (*sheets.Service, func() []sheetCall) {
	t.Helper()

	var mu sync.Mutex
	var calls []sheetCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, sheetCall{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/spreadsheets/sheet-1"):
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","sheets":[{"properties":{"title":"Licenses"}}]}`))
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
			rows := make([][]string, 0, len(existingKeys))
			for _, key := range existingKeys {
				rows = append(rows, []string{key})
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"values": rows})
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	return srv, func() []sheetCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]sheetCall(nil), calls...)
	}
}

func TestSyncLicenseUpdatesExistingRow(t *testing.T) {
	srv, calls := fakeSheets(t, "HA-SUB-0-a-b", "HA-SUB-1-c-d")
	syncer := NewSheetSyncWithService(srv, "sheet-1", "Licenses", testWindow, zerolog.Nop())

	err := syncer.SyncLicense(context.Background(), model.License{
		Key:       "HA-SUB-1-c-d",
		Active:    true,
		UserID:    "a@b.com",
		StartDate: model.NewTimestamp(testNow),
	})
	require.NoError(t, err)

	last := calls()[len(calls())-1]
	assert.Equal(t, http.MethodPut, last.Method)
	assert.Contains(t, last.Path, "A3:I3")
	assert.Contains(t, last.Body, "a@b.com")
}

func TestSyncLicenseAppendsNewRow(t *testing.T) {
	srv, calls := fakeSheets(t, "HA-SUB-0-a-b")
	syncer := NewSheetSyncWithService(srv, "sheet-1", "Licenses", testWindow, zerolog.Nop())

	err := syncer.SyncLicense(context.Background(), model.License{Key: "HA-SUB-9-e-f", UserID: "new@b.com"})
	require.NoError(t, err)

	last := calls()[len(calls())-1]
	assert.Equal(t, http.MethodPost, last.Method)
	assert.True(t, strings.HasSuffix(last.Path, ":append"), last.Path)
}

func TestSyncLicenseMissingSheet(t *testing.T) {
	srv, _ := fakeSheets(t)
	syncer := NewSheetSyncWithService(srv, "sheet-1", "Archive", testWindow, zerolog.Nop())

	err := syncer.SyncLicense(context.Background(), model.License{Key: "HA-SUB-9-e-f"})
	assert.ErrorContains(t, err, `sheet "Archive" does not exist`)
}

func TestBatchSyncLicenses(t *testing.T) {
	srv, calls := fakeSheets(t)
	syncer := NewSheetSyncWithService(srv, "sheet-1", "Licenses", testWindow, zerolog.Nop())

	err := syncer.BatchSyncLicenses(context.Background(), []model.License{
		{Key: "HA-SUB-1-a-b", UserID: "one@b.com"},
		{Key: "HA-SUB-2-c-d", UserID: "two@b.com"},
	})
	require.NoError(t, err)

	got := calls()
	require.Len(t, got, 2)
	assert.True(t, strings.HasSuffix(got[0].Path, ":clear"), got[0].Path)
	assert.Equal(t, http.MethodPut, got[1].Method)
	assert.Contains(t, got[1].Body, "two@b.com")
}

func TestNilSheetSyncIsNoop(t *testing.T) {
	var syncer *SheetSyncService
	assert.NoError(t, syncer.SyncLicense(context.Background(), model.License{}))
	assert.NoError(t, syncer.BatchSyncLicenses(context.Background(), nil))
	syncer.SyncLicenseAsync(model.License{})
}
