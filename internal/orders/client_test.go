package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lacomanda/storefront/internal/transport"
	"github.com/lacomanda/storefront/pkg/loading"
)

func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(2)
}

func fakeSummaries(t *testing.T, n int) []Summary {
	t.Helper()
	faker := gofakeit.New(11)
	out := make([]Summary, n)
	for i := range out {
		out[i] = Summary{
			ID:           int64(i + 1),
			OrderNumber:  fmt.Sprintf("ORD-%03d", i+1),
			Status:       StatusPending,
			TotalAmount:  decimalFromFloat(faker.Price(50, 500)),
			CreatedAt:    time.Now().UTC().Truncate(time.Second),
			CustomerName: faker.Name(),
		}
	}
	return out
}

func newClientAgainst(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	api, err := transport.New(srv.URL+"/api/", zaptest.NewLogger(t))
	require.NoError(t, err)
	return NewClient(api, zaptest.NewLogger(t)), srv
}

func TestClient_FetchPage_FilterParams(t *testing.T) {
	var gotQuery string
	c, _ := newClientAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(Page{Count: 0})
	}))

	_, err := c.FetchPage(context.Background(), Filter{Status: StatusPending, Date: "2024-05-01"}, "")
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "status=pending")
	assert.Contains(t, gotQuery, "date=2024-05-01")
}

func TestClient_FetchPage_CursorWinsOverFilter(t *testing.T) {
	var gotQuery string
	c, srv := newClientAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(Page{Count: 50})
	}))

	cursor := srv.URL + "/api/orders/?page=2"
	_, err := c.FetchPage(context.Background(), Filter{Status: StatusDelivered}, cursor)
	require.NoError(t, err)
	assert.Equal(t, "page=2", gotQuery, "filter must be ignored when a cursor is given")
}

func TestClient_FetchPage_NeverNilResults(t *testing.T) {
	c, _ := newClientAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count": 0, "results": null}`))
	}))

	page, err := c.FetchPage(context.Background(), Filter{}, "")
	require.NoError(t, err)
	assert.NotNil(t, page.Results)
}

func TestClient_MyOrders(t *testing.T) {
	summaries := fakeSummaries(t, 3)
	c, _ := newClientAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders/my-orders/", r.URL.Path)
		json.NewEncoder(w).Encode(myOrdersResponse{Success: true, Count: 3, Orders: summaries})
	}))

	got, err := c.MyOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, summaries[0].OrderNumber, got[0].OrderNumber)
}

func TestClient_UpdateStatus(t *testing.T) {
	var gotBody map[string]string
	c, _ := newClientAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/orders/7/status/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(orderEnvelope{Success: true, Order: Order{ID: 7, Status: StatusAssigned}})
	}))

	updated, err := c.UpdateStatus(context.Background(), 7, StatusAssigned)
	require.NoError(t, err)
	assert.Equal(t, StatusAssigned, updated.Status)
	assert.Equal(t, "assigned", gotBody["status"])
}

func TestClient_UpdateStatus_BusinessError(t *testing.T) {
	c, _ := newClientAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success": false, "detail": "invalid transition"}`))
	}))

	_, err := c.UpdateStatus(context.Background(), 7, Status("bogus"))
	var apiErr *transport.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid transition", apiErr.Detail)
}

func TestListView_NavigationFollowsCursors(t *testing.T) {
	var hits atomic.Int64
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		page := r.URL.Query().Get("page")
		switch page {
		case "", "1":
			json.NewEncoder(w).Encode(Page{
				Count:   50,
				Results: make([]Summary, 25),
				Next:    srv.URL + "/api/orders/?page=2",
			})
		case "2":
			json.NewEncoder(w).Encode(Page{
				Count:    50,
				Results:  make([]Summary, 25),
				Previous: srv.URL + "/api/orders/?page=1",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	api, err := transport.New(srv.URL+"/api/", zaptest.NewLogger(t))
	require.NoError(t, err)
	view := NewListView(NewClient(api, zaptest.NewLogger(t)), Filter{})
	defer view.Close()

	ctx := context.Background()
	view.Load(ctx)
	first := awaitSettled(t, view.States())
	require.NotNil(t, first.Data)
	assert.Equal(t, 1, first.Data.CurrentPage())

	require.True(t, view.Next(ctx))
	second := awaitSettled(t, view.States())
	require.NotNil(t, second.Data)
	assert.Equal(t, 2, second.Data.CurrentPage())
	assert.False(t, second.Data.HasNext())

	require.True(t, view.Previous(ctx))
	third := awaitSettled(t, view.States())
	require.NotNil(t, third.Data)
	assert.Equal(t, 1, third.Data.CurrentPage())

	// Refresh stays on the current page.
	before := hits.Load()
	view.Refresh(ctx)
	awaitSettled(t, view.States())
	assert.Equal(t, before+1, hits.Load())
}

func TestListView_NextWithoutDataIsNoop(t *testing.T) {
	c, _ := newClientAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Page{Count: 10, Results: make([]Summary, 10)})
	}))
	view := NewListView(c, Filter{})
	defer view.Close()

	assert.False(t, view.Next(context.Background()))
	assert.False(t, view.Previous(context.Background()))

	view.Load(context.Background())
	awaitSettled(t, view.States())
	assert.False(t, view.Next(context.Background()), "single page has no next")
}

func TestListView_SearchResetsToFirstPage(t *testing.T) {
	var lastQuery string
	c, _ := newClientAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(Page{Count: 1, Results: make([]Summary, 1)})
	}))
	view := NewListView(c, Filter{})
	defer view.Close()

	view.Search(context.Background(), "pending")
	awaitSettled(t, view.States())
	assert.Equal(t, "status=pending", lastQuery)

	view.Search(context.Background(), "ORD-42")
	awaitSettled(t, view.States())
	assert.Equal(t, "order_number=ORD-42", lastQuery)
}

func awaitSettled(t *testing.T, ch <-chan loading.State[Page]) loading.State[Page] {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				t.Fatal("state channel closed")
			}
			if st.Settled() {
				return st
			}
		case <-deadline:
			t.Fatal("no settled state")
		}
	}
}
