package circulation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *fixture) {
	t.Helper()
	f := newFixture(t)
	srv := httptest.NewServer(NewHandler(f.svc).Routes())
	t.Cleanup(srv.Close)
	return srv, f
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeView(t *testing.T, resp *http.Response) LoanView {
	t.Helper()
	var view LoanView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	return view
}

func TestHandler_CreateAndReturn(t *testing.T) {
	srv, f := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/loans", `{"member_id":"m1","book_id":1,"expected_return_date":"2025-06-01"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeView(t, resp)
	assert.Equal(t, StatusOnLoan, created.Status)
	assert.Equal(t, "Dune", created.BookTitle)

	resp = do(t, http.MethodGet, srv.URL+"/loans/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, decodeView(t, resp).ID)

	resp = do(t, http.MethodPut, srv.URL+"/loans/"+created.ID+"/return", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	returned := decodeView(t, resp)
	assert.Equal(t, StatusReturned, returned.Status)
	assert.True(t, f.catalog.available(1))

	assert.Equal(t, http.StatusConflict, do(t, http.MethodPut, srv.URL+"/loans/"+created.ID+"/return", "").StatusCode)
}

func TestHandler_ErrorMapping(t *testing.T) {
	srv, f := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown member", http.MethodPost, "/loans", `{"member_id":"ghost","book_id":1,"expected_return_date":"2025-06-01"}`, http.StatusNotFound},
		{"unavailable book", http.MethodPost, "/loans", `{"member_id":"m1","book_id":2,"expected_return_date":"2025-06-01"}`, http.StatusConflict},
		{"missing expected return", http.MethodPost, "/loans", `{"member_id":"m1","book_id":1}`, http.StatusBadRequest},
		{"malformed date", http.MethodPost, "/loans", `{"member_id":"m1","book_id":1,"expected_return_date":"tomorrow"}`, http.StatusBadRequest},
		{"unknown loan", http.MethodGet, "/loans/nope", "", http.StatusNotFound},
		{"return unknown loan", http.MethodPut, "/loans/nope/return", "", http.StatusNotFound},
		{"unknown member loans", http.MethodGet, "/members/ghost/loans", "", http.StatusNotFound},
		{"bad status", http.MethodGet, "/loans?status=LOST", "", http.StatusBadRequest},
		{"bad book id", http.MethodGet, "/books/abc/loans?status=ON_LOAN", "", http.StatusBadRequest},
		{"book loans without status", http.MethodGet, "/books/1/loans", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, do(t, tt.method, srv.URL+tt.path, tt.body).StatusCode)
		})
	}
	assert.Empty(t, f.storedLoans(t))
}

func TestHandler_RemoteFailureIs500(t *testing.T) {
	srv, f := newTestServer(t)
	f.members.existsErr = errRemote

	resp := do(t, http.MethodPost, srv.URL+"/loans", `{"member_id":"m1","book_id":1,"expected_return_date":"2025-06-01"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHandler_Lists(t *testing.T) {
	srv, f := newTestServer(t)
	created := f.createLoan(t)

	for _, path := range []string{"/loans", "/loans?status=ON_LOAN", "/members/m1/loans", "/books/1/loans?status=ON_LOAN"} {
		resp := do(t, http.MethodGet, srv.URL+path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, path)

		var views []LoanView
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
		require.Len(t, views, 1, path)
		assert.Equal(t, created.ID, views[0].ID)
	}

	resp := do(t, http.MethodGet, srv.URL+"/loans?status=RETURNED", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var views []LoanView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	assert.Empty(t, views)
}
