package testutils

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Response is a canned reply served by an APIServer.
type Response struct {
	Status int
	Header map[string]string
	Body   string
}

// RecordedRequest is what the APIServer saw for one request.
type RecordedRequest struct {
	Method   string
	Path     string
	RawPath  string
	RawQuery string
	Header   http.Header
	Body     []byte

	// Form merges the query string and any url-encoded body.
	Form url.Values
}

// APIServer is a fake NIFCLOUD endpoint recording the requests it receives.
// Responses are served in order, the last one repeating once exhausted.
type APIServer struct {
	*httptest.Server

	mu        sync.Mutex
	requests  []RecordedRequest
	responses []Response
}

// NewAPIServer starts an APIServer closed at the end of the test.
func NewAPIServer(t *testing.T, responses ...Response) *APIServer {
	t.Helper()

	if len(responses) == 0 {
		responses = []Response{{Status: http.StatusOK}}
	}

	s := &APIServer{responses: responses}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *APIServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	form := r.URL.Query()
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if values, err := url.ParseQuery(string(body)); err == nil {
			for k, v := range values {
				form[k] = append(form[k], v...)
			}
		}
	}

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawPath:  r.URL.EscapedPath(),
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
		Form:     form,
	})
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	s.mu.Unlock()

	for k, v := range resp.Header {
		w.Header().Set(k, v)
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, resp.Body)
}

// Requests returns a copy of every request recorded so far.
func (s *APIServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]RecordedRequest(nil), s.requests...)
}

// LastRequest returns the most recent request, failing the test if there is none.
func (s *APIServer) LastRequest(t *testing.T) RecordedRequest {
	t.Helper()

	reqs := s.Requests()
	require.NotEmpty(t, reqs, "APIServer should have received at least one request")
	return reqs[len(reqs)-1]
}
