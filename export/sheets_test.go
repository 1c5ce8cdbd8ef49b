package export

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sacrifice-website/models"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeSheets struct {
	mu      sync.Mutex
	calls   []string
	written [][]interface{}
	fail    bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	if f.fail {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
		return
	}
	if r.Method == http.MethodPut {
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.written = body.Values
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{}`))
}

func newTestExporter(t *testing.T, fake *fakeSheets) *SheetsExporter {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	e, err := NewSheetsExporter(context.Background(), "", "sheet-123",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return e
}

func TestSheetsExporter_ExportShareholders(t *testing.T) {
	fake := &fakeSheets{}
	e := newTestExporter(t, fake)

	animals := []models.SacrificeAnimal{
		{ID: "a1", No: 1, Time: "08:00"},
		{ID: "a2", No: 2, Time: "08:30"},
	}
	bought := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	holders := []models.Shareholder{
		{Name: "Second", SacrificeID: "a2", PurchaseTime: bought, TotalAmount: 10750, DeliveryType: models.DeliveryCollective},
		{Name: "First", SacrificeID: "a1", PurchaseTime: bought.Add(time.Hour), SacrificeConsent: true},
	}

	n, err := e.ExportShareholders(context.Background(), holders, animals)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, fake.calls, 2)
	assert.True(t, strings.HasPrefix(fake.calls[0], "POST "))
	assert.True(t, strings.HasSuffix(fake.calls[0], ":clear"))
	assert.True(t, strings.HasPrefix(fake.calls[1], "PUT "))
	assert.Contains(t, fake.calls[1], "sheet-123")

	require.Len(t, fake.written, 3)
	assert.Equal(t, "Kurban No", fake.written[0][0])
	assert.Equal(t, "First", fake.written[1][2])
	assert.Equal(t, "Evet", fake.written[1][11])
	assert.Equal(t, "Second", fake.written[2][2])
	assert.Equal(t, "toplu-teslim", fake.written[2][4])
	assert.Equal(t, "01.05.2026 12:00", fake.written[2][12])
}

func TestSheetsExporter_APIError(t *testing.T) {
	e := newTestExporter(t, &fakeSheets{fail: true})

	_, err := e.ExportShareholders(context.Background(), nil, nil)
	assert.ErrorContains(t, err, "clear sheet")
}
