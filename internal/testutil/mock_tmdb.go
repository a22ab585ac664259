// Package testutil provides a mock TMDB search server for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// SearchPath is the endpoint served by MockTMDB.
const SearchPath = "/search/movie"

// MockMovie is one search result known to the mock server.
type MockMovie struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	PosterPath  string `json:"poster_path,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	GenreIDs    []int  `json:"genre_ids"`
}

// MockResponse defines one scripted response for a query.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration

	// DropConnection closes the connection without writing a response.
	// Such a response is never consumed: every later request for the query
	// fails the same way.
	DropConnection bool
}

// MockTMDB is a configurable mock of the TMDB movie search endpoint.
//
// Queries are matched case-insensitively after trimming. A query with
// scripted responses consumes them in order; once the script is exhausted
// (or when none exists) the registered catalog answers with 200.
type MockTMDB struct {
	server *httptest.Server

	mu       sync.Mutex
	catalog  map[string][]MockMovie
	scripts  map[string][]MockResponse
	requests map[string]int
	apiKeys  []string
	inFlight int
	maxIn    int
	total    int
}

// NewMockTMDB starts a new mock server.
func NewMockTMDB() *MockTMDB {
	mock := &MockTMDB{
		catalog:  make(map[string][]MockMovie),
		scripts:  make(map[string][]MockResponse),
		requests: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(SearchPath, mock.handleSearch)
	mock.server = httptest.NewServer(mux)
	return mock
}

// URL returns the base URL to configure as the catalog API base.
func (m *MockTMDB) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockTMDB) Close() {
	m.server.Close()
}

// AddMovie registers search results for a query.
func (m *MockTMDB) AddMovie(query string, results ...MockMovie) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog[normalize(query)] = append(m.catalog[normalize(query)], results...)
}

// Script queues responses returned, in order, for a query before the catalog
// answer is used.
func (m *MockTMDB) Script(query string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[normalize(query)] = append(m.scripts[normalize(query)], responses...)
}

// RequestCount returns the number of requests seen for a query.
func (m *MockTMDB) RequestCount(query string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[normalize(query)]
}

// TotalRequests returns the number of search requests served.
func (m *MockTMDB) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// MaxInFlight returns the highest number of concurrently served requests.
func (m *MockTMDB) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxIn
}

// APIKeys returns the api_key values received, in arrival order.
func (m *MockTMDB) APIKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.apiKeys...)
}

// Reset clears all tracking counters.
func (m *MockTMDB) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[string]int)
	m.apiKeys = nil
	m.maxIn = 0
	m.total = 0
}

func (m *MockTMDB) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := normalize(r.URL.Query().Get("query"))

	m.mu.Lock()
	m.total++
	m.requests[query]++
	m.apiKeys = append(m.apiKeys, r.URL.Query().Get("api_key"))
	m.inFlight++
	if m.inFlight > m.maxIn {
		m.maxIn = m.inFlight
	}
	var scripted *MockResponse
	if queue := m.scripts[query]; len(queue) > 0 {
		scripted = &queue[0]
		if !scripted.DropConnection {
			m.scripts[query] = queue[1:]
		}
	}
	results := append([]MockMovie(nil), m.catalog[query]...)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if scripted != nil {
		writeScripted(w, *scripted)
		return
	}

	if results == nil {
		results = []MockMovie{}
	}
	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(SearchBody(results...)))
}

func writeScripted(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	if resp.DropConnection {
		hj, ok := w.(http.Hijacker)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

// SearchBody renders a TMDB search response containing results.
func SearchBody(results ...MockMovie) string {
	if results == nil {
		results = []MockMovie{}
	}
	payload := struct {
		Page         int         `json:"page"`
		Results      []MockMovie `json:"results"`
		TotalPages   int         `json:"total_pages"`
		TotalResults int         `json:"total_results"`
	}{
		Page:         1,
		Results:      results,
		TotalPages:   1,
		TotalResults: len(results),
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

// NewThrottledResponse creates a 429 response. An empty retryAfter omits the
// Retry-After header.
func NewThrottledResponse(retryAfter string) MockResponse {
	resp := MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status_code":25,"status_message":"Your request count (41) is over the allowed limit of 40."}`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
	if retryAfter != "" {
		resp.Headers["Retry-After"] = retryAfter
	}
	return resp
}

// NewUnauthorizedResponse creates a 401 response as sent for an invalid key.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"status_code":7,"status_message":"Invalid API key: You must be granted a valid key.","success":false}`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status_code":11,"status_message":"Internal error: Something went wrong, contact TMDb."}`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}

// NewMalformedResponse creates a 200 response whose body is not valid JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"page":1,"results":[`,
		Headers: map[string]string{
			"Content-Type": "application/json;charset=utf-8",
		},
	}
}

// NewNetworkFailure creates a response that drops the connection.
func NewNetworkFailure() MockResponse {
	return MockResponse{DropConnection: true}
}

func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
