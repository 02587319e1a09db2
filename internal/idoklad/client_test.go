package idoklad

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// authServer issues sequential tokens ("token-1", "token-2", ...) and
// counts how often it is hit.
func authServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
		assert.Equal(t, "idoklad_api", r.FormValue("scope"))

		n := atomic.AddInt32(hits, 1)
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": fmt.Sprintf("token-%d", n),
		})
	}))
}

func newTestClient(apiURL, authURL string) *Client {
	return NewClient(Config{
		APIURL:       apiURL,
		AuthURL:      authURL,
		ClientID:     "id",
		ClientSecret: "secret",
	}, NewTokenCache())
}

func TestContacts_TokenIsCachedAcrossCalls(t *testing.T) {
	var authHits int32
	auth := authServer(t, &authHits)
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"Data": []Contact{{ID: 1, CompanyName: "Trattoria Roma", IdentificationNumber: "12345678"}},
		})
	}))
	defer api.Close()

	cl := newTestClient(api.URL, auth.URL)

	contacts, err := cl.Contacts(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Trattoria Roma", contacts[0].CompanyName)

	_, err = cl.Contacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&authHits), "the second call must reuse the cached token")
}

func TestDo_UnauthorizedTriggersOneReauthAndRetry(t *testing.T) {
	var authHits int32
	auth := authServer(t, &authHits)
	defer auth.Close()

	var apiHits int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&apiHits, 1) == 1 {
			// The first token is treated as expired.
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer token-2", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{"Data": []Contact{}})
	}))
	defer api.Close()

	cl := newTestClient(api.URL, auth.URL)

	_, err := cl.Contacts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&apiHits), "exactly one retry")
	assert.Equal(t, int32(2), atomic.LoadInt32(&authHits), "exactly one re-authentication")
}

func TestDo_PersistentUnauthorizedIsReported(t *testing.T) {
	var authHits int32
	auth := authServer(t, &authHits)
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer api.Close()

	cl := newTestClient(api.URL, auth.URL)

	_, err := cl.Contacts(context.Background())
	require.Error(t, err, "a 401 after the retry must surface, not loop")
	assert.Equal(t, int32(2), atomic.LoadInt32(&authHits))
}

func TestPostInvoice_OverlaysTemplateItem(t *testing.T) {
	var authHits int32
	auth := authServer(t, &authHits)
	defer auth.Close()

	var posted map[string]interface{}
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v2/IssuedInvoices/Default":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"CurrencyId": 1,
				"IssuedInvoiceItems": []map[string]interface{}{
					{"VatRateType": 2, "PriceType": 1, "Name": "placeholder"},
				},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v2/IssuedInvoices":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			json.NewEncoder(w).Encode(map[string]int{"Id": 4711})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer api.Close()

	cl := newTestClient(api.URL, auth.URL)

	result, err := cl.PostInvoice(context.Background(), 77,
		[]LineItem{{Name: "Spaghetti", Unit: "kg", Amount: 4, UnitPrice: mustDecimal("10.00")}},
		"Delivery note 1 of 2026-03-03")
	require.NoError(t, err)

	assert.True(t, result.OK())
	assert.Equal(t, 4711, result.InvoiceID)

	assert.Equal(t, float64(77), posted["PurchaserId"])
	assert.Equal(t, "Delivery note 1 of 2026-03-03", posted["Description"])

	items, ok := posted["IssuedInvoiceItems"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "Spaghetti", item["Name"])
	assert.Equal(t, float64(4), item["Amount"])
	// Template defaults survive the overlay.
	assert.Equal(t, float64(2), item["VatRateType"])
}

func TestPostInvoice_NonSuccessStatusIsReturned(t *testing.T) {
	var authHits int32
	auth := authServer(t, &authHits)
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(map[string]interface{}{"IssuedInvoiceItems": []map[string]interface{}{}})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer api.Close()

	cl := newTestClient(api.URL, auth.URL)

	result, err := cl.PostInvoice(context.Background(), 77, nil, "x")
	require.NoError(t, err)
	assert.False(t, result.OK())
	assert.Equal(t, http.StatusBadRequest, result.StatusCode)
}
