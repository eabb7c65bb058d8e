package d365

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordicfin/relion-bridge/internal/mapping"
	"github.com/nordicfin/relion-bridge/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL, StaticToken("test-token"), logger.New("test", io.Discard))
	return client
}

func shortenBackoff(t *testing.T, c *Client) {
	t.Helper()
	c.retryBackoff = time.Millisecond
}

func valueEnvelope(t *testing.T, rows interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"value": rows})
	require.NoError(t, err)
	return body
}

func TestLookupAccountMappingFound(t *testing.T) {
	var gotFilter, gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("$filter")
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/data/RelionAccountMappings", r.URL.Path)

		w.Write(valueEnvelope(t, []accountMappingEntity{{
			LedgerAccountNumber: "4711",
			IFRSCode:            "IFRS16",
			MainAccount:         "6000",
			ExcludeFromImport:   "Yes",
		}}))
	})

	got, found, err := client.LookupAccountMapping(context.Background(), "4711", "IFRS16")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "6000", got.MainAccount)
	assert.True(t, got.ExcludeFromImport)
	assert.Equal(t, "LedgerAccountNumber eq '4711' and IFRSCode eq 'IFRS16'", gotFilter)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestLookupAccountMappingNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(valueEnvelope(t, []accountMappingEntity{}))
	})

	got, found, err := client.LookupAccountMapping(context.Background(), "9999", "")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestLookupAccountMappingEscapesQuotes(t *testing.T) {
	var gotFilter string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("$filter")
		w.Write(valueEnvelope(t, []accountMappingEntity{}))
	})

	_, _, err := client.LookupAccountMapping(context.Background(), "o'brien", "")
	require.NoError(t, err)
	assert.Equal(t, "LedgerAccountNumber eq 'o''brien' and IFRSCode eq ''", gotFilter)
}

func TestLookupTaxGroup(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/RelionTaxGroupMappings", r.URL.Path)
		assert.Equal(t, "BookingType eq 'Purchase' and PostingGroup eq 'DOMESTIC'",
			r.URL.Query().Get("$filter"))
		w.Write(valueEnvelope(t, []taxGroupMappingEntity{{TaxGroup: "VST19"}}))
	})

	got, found, err := client.LookupTaxGroup(context.Background(), mapping.BookingPurchase, "DOMESTIC")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "VST19", got.TaxGroup)
}

func TestLookupItemTaxGroup(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/RelionItemTaxGroupMappings", r.URL.Path)
		w.Write(valueEnvelope(t, []itemTaxGroupMappingEntity{{TaxCode: "V19", ItemTaxGroup: "FULL19"}}))
	})

	got, found, err := client.LookupItemTaxGroup(context.Background(), "DOM", "FULL")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "V19", got.TaxCode)
	assert.Equal(t, "FULL19", got.ItemTaxGroup)
}

func TestFetchDimensionFormatOrdersSegments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Rows delivered out of order on purpose.
		w.Write(valueEnvelope(t, []dimensionFormatEntity{
			{Delimiter: "-", SegmentName: "D_Projekte", SegmentIndex: 2},
			{Delimiter: "-", SegmentName: "MainAccount", SegmentIndex: 1},
			{Delimiter: "-", SegmentName: "H_Partnergesellschaft", SegmentIndex: 4},
			{Delimiter: "-", SegmentName: "G_Bewegungsarten", SegmentIndex: 3},
		}))
	})

	format, err := client.FetchDimensionFormat(context.Background(), "Kontostruktur", "AccountStructure")
	require.NoError(t, err)

	assert.Equal(t, "-", format.Delimiter)
	assert.Equal(t,
		[]string{"MainAccount", "D_Projekte", "G_Bewegungsarten", "H_Partnergesellschaft"},
		format.Segments)
}

func TestFetchDimensionFormatNotFoundIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(valueEnvelope(t, []dimensionFormatEntity{}))
	})

	_, err := client.FetchDimensionFormat(context.Background(), "Missing", "AccountStructure")
	assert.ErrorContains(t, err, "not found")
}

func TestCreateHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/data/LedgerJournalHeaders", r.URL.Path)

		var req journalHeaderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "DE01", req.DataAreaID)
		assert.Equal(t, "RELION", req.JournalName)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(journalHeaderResponse{
			DataAreaID:         "DE01",
			JournalBatchNumber: "JB-000042",
		})
	})

	header, err := client.CreateHeader(context.Background(), "DE01")
	require.NoError(t, err)
	assert.Equal(t, "JB-000042", header.BatchNumber)
}

func TestCreateLines(t *testing.T) {
	var got []journalLineRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/LedgerJournalLines", r.URL.Path)
		var req journalLineRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	})

	lines := []mapping.JournalLine{
		{
			CompanyID:          "DE01",
			JournalBatchNumber: "JB-1",
			AccountType:        "Ledger",
			AccountDisplay:     "6000-P100-M5-DE02",
			TransDate:          time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			DocumentDate:       time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
			DebitAmount:        decimal.RequireFromString("119.50"),
			CurrencyCode:       "EUR",
			ExchangeRate:       decimal.NewFromInt(100),
			SalesTaxGroup:      "VST19",
			ItemSalesTaxGroup:  "FULL19",
		},
		{CompanyID: "DE01", JournalBatchNumber: "JB-1", AccountType: "Ledger"},
	}

	err := client.CreateLines(context.Background(), lines)
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "DE01", first.DataAreaID)
	assert.Equal(t, "6000-P100-M5-DE02", first.AccountDisplayValue)
	assert.Equal(t, "2026-03-15T00:00:00Z", first.TransDate)
	assert.InDelta(t, 119.50, first.DebitAmount, 0.0001)
	assert.Equal(t, "VST19", first.SalesTaxGroup)
	assert.Empty(t, first.SalesTaxCode)
}

func TestCreateLinesStopsOnFirstFailure(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"invalid account"}}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	})

	lines := make([]mapping.JournalLine, 3)
	err := client.CreateLines(context.Background(), lines)

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.ErrorContains(t, err, "line 2 of 3")
}

func TestDoRequestRetriesOnThrottling(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(valueEnvelope(t, []accountMappingEntity{}))
	})
	// Keep the backoff from slowing the suite down.
	shortenBackoff(t, client)

	_, found, err := client.LookupAccountMapping(context.Background(), "4711", "")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 3, calls)
}

func TestDoRequestGivesUpAfterThrottlingRetries(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})
	shortenBackoff(t, client)

	_, _, err := client.LookupAccountMapping(context.Background(), "4711", "")
	require.Error(t, err)
	assert.Equal(t, maxRetries+1, calls)
}

func TestDoRequestServerErrorIsNotRetried(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom"}}`))
	})

	_, _, err := client.LookupAccountMapping(context.Background(), "4711", "")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorContains(t, err, "status 500")
}
