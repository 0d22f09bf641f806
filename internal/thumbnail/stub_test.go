package thumbnail

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rprusd/thumbhub/internal/assetkind"
	"github.com/rprusd/thumbhub/internal/cache"
	"github.com/rprusd/thumbhub/internal/logging"
)

type behaviour int

const (
	serveOK behaviour = iota
	serveNoLength
	serveTruncated
	serveError
	serveHang
)

// thumbStub 模拟缩略图接口 <base>/<id>/thumbnail，按 id 决定响应方式并记录请求次数。
type thumbStub struct {
	server *httptest.Server

	mu           sync.Mutex
	behaviours   map[string]behaviour
	requests     map[string]int
	delay        time.Duration
	lastModified time.Time

	active    int32
	maxActive int32
}

func newThumbStub(t *testing.T) *thumbStub {
	t.Helper()
	stub := &thumbStub{
		behaviours: make(map[string]behaviour),
		requests:   make(map[string]int),
	}
	stub.server = httptest.NewServer(http.HandlerFunc(stub.serve))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *thumbStub) set(id string, b behaviour) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.behaviours[id] = b
}

func (s *thumbStub) setDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *thumbStub) setLastModified(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastModified = t
}

func (s *thumbStub) requestCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[id]
}

func (s *thumbStub) totalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.requests {
		total += n
	}
	return total
}

func (s *thumbStub) baseURL() *url.URL {
	u, _ := url.Parse(s.server.URL + "/api/lights")
	return u
}

func (s *thumbStub) serve(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/lights/")
	id, suffix, ok := strings.Cut(rest, "/")
	if !ok || suffix != "thumbnail" {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	s.requests[id]++
	b := s.behaviours[id]
	delay, lastModified := s.delay, s.lastModified
	s.mu.Unlock()

	current := atomic.AddInt32(&s.active, 1)
	defer atomic.AddInt32(&s.active, -1)
	for {
		prev := atomic.LoadInt32(&s.maxActive)
		if current <= prev || atomic.CompareAndSwapInt32(&s.maxActive, prev, current) {
			break
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	if !lastModified.IsZero() {
		w.Header().Set("Last-Modified", lastModified.Format(http.TimeFormat))
	}

	body := payloadFor(id)
	switch b {
	case serveOK:
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	case serveNoLength:
		w.Header().Set("Content-Type", "image/png")
		w.(http.Flusher).Flush()
		_, _ = w.Write(body)
	case serveTruncated:
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write(make([]byte, 400))
	case serveError:
		http.Error(w, "boom", http.StatusInternalServerError)
	case serveHang:
		<-r.Context().Done()
	}
}

func payloadFor(id string) []byte {
	return []byte("thumbnail-bytes-for-" + id)
}

func newTestFetcher(t *testing.T, stub *thumbStub, dir string, mutate func(*Options)) *Fetcher {
	t.Helper()
	store, err := cache.NewStore(dir, ".png")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	kind := assetkind.Metadata{Key: "light", ThumbnailSegment: "thumbnail", FileExt: ".png"}
	opts := Options{
		Catalog: "lights",
		BaseURL: stub.baseURL(),
		Kind:    kind,
		Timeout: 5 * time.Second,
	}
	if mutate != nil {
		mutate(&opts)
	}
	fetcher, err := NewFetcher(stub.server.Client(), store, logging.Discard(), opts)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	return fetcher
}

