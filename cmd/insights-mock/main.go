// insights-mock is a local stand-in for the Insights events collector.
// Point loadgen's -uri at it to watch batches arrive, or enable failure
// injection to rehearse how the exporter behaves when the collector
// degrades.
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
)

var (
	addr       string
	insertKey  string
	failEvery  int64
	failStatus int
	failBody   string
	logLevel   string
)

func init() {
	flag.StringVar(&addr, "addr", ":9911", "Address to listen on")
	flag.StringVar(&insertKey, "insert-key", "", "Reject requests whose X-Insert-Key differs. Empty accepts any key")
	flag.Int64Var(&failEvery, "fail-every", 0, "Fail every Nth events request. 0 disables failure injection")
	flag.IntVar(&failStatus, "fail-status", http.StatusServiceUnavailable, "Status code for injected failures")
	flag.StringVar(&failBody, "fail-body", "injected failure", "Body for injected failures")
	flag.StringVar(&logLevel, "logLevel", "info", "Log level: \"trace\", \"debug\", \"info\", \"warn\", \"error\", \"fatal\", \"panic\"")
}

// bodies bigger than this are not a plausible batch, even at the API cap
const maxBodyBytes = 8 << 20

type mockServer struct {
	insertKey  string
	failEvery  int64
	failStatus int
	failBody   string

	requests atomic.Int64
	events   atomic.Int64
	rejected atomic.Int64

	parsers fastjson.ParserPool
}

func (s *mockServer) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/v1/accounts/{accountID}/events", s.handleEvents)
	r.Get("/status", s.handleStatus)
	return r
}

func (s *mockServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	n := s.requests.Add(1)
	accountID := chi.URLParam(r, "accountID")

	if s.insertKey != "" && r.Header.Get("X-Insert-Key") != s.insertKey {
		s.rejected.Add(1)
		log.Warnf("account %s: rejected request with bad insert key", accountID)
		writeJSONError(w, http.StatusForbidden, "invalid insert key")
		return
	}

	if s.failEvery > 0 && n%s.failEvery == 0 {
		s.rejected.Add(1)
		log.Warnf("account %s: injecting http %d", accountID, s.failStatus)
		w.WriteHeader(s.failStatus)
		io.WriteString(w, s.failBody)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.rejected.Add(1)
		writeJSONError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	p := s.parsers.Get()
	defer s.parsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		s.rejected.Add(1)
		log.Warnf("account %s: rejected invalid json: %v", accountID, err)
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	arr, err := v.Array()
	if err != nil {
		s.rejected.Add(1)
		writeJSONError(w, http.StatusBadRequest, "expected an array of events")
		return
	}
	for i, item := range arr {
		if item.Get("eventType") == nil || item.Get("value") == nil {
			s.rejected.Add(1)
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("event %d missing eventType or value", i))
			return
		}
		// fastjson tolerates bare NaN/Inf literals; the real collector
		// does not, so neither does the mock
		if v := item.GetFloat64("value"); math.IsNaN(v) || math.IsInf(v, 0) {
			s.rejected.Add(1)
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("event %d has a non-finite value", i))
			return
		}
	}

	total := s.events.Add(int64(len(arr)))
	log.Infof("account %s: accepted %d events (%d total)", accountID, len(arr), total)

	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, `{"success":true}`)
}

func (s *mockServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"requests":%d,"events":%d,"rejected":%d}`,
		s.requests.Load(), s.events.Load(), s.rejected.Load())
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}

func main() {
	flag.Parse()

	switch logLevel {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	case "fatal":
		log.SetLevel(log.FatalLevel)
	case "panic":
		log.SetLevel(log.PanicLevel)
	}

	s := &mockServer{
		insertKey:  insertKey,
		failEvery:  failEvery,
		failStatus: failStatus,
		failBody:   failBody,
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Infof("insights-mock listening on %s", addr)
	if s.insertKey != "" {
		log.Info("Requests must carry the configured X-Insert-Key")
	}
	if s.failEvery > 0 {
		log.Infof("Failure injection: every %d request(s) gets http %d", s.failEvery, s.failStatus)
	}
	if err := server.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
