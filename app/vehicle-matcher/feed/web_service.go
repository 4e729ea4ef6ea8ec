package feed

import (
	"context"
	"encoding/json"
	logger "log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

// ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

// statusHandler reports every source's snapshot age and entity counts as json
type statusHandler struct {
	log        *logger.Logger
	aggregator *Aggregator
}

// statusResponse wraps the per-source summaries for the status endpoint
type statusResponse struct {
	Timestamp int64          `json:"timestamp"`
	Sources   []SourceStatus `json:"sources"`
}

// ServeHTTP implements statusHandler's http.Handler interface
func (s *statusHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	response := statusResponse{
		Timestamp: time.Now().Unix(),
		Sources:   s.aggregator.SourceStatuses(),
	}
	jsonData, err := json.Marshal(&response)
	if err != nil {
		s.log.Printf("Error marshaling source statuses to json: error:%v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(jsonData)
	if err != nil {
		s.log.Printf("Error writing json response: %s", err)
	}
}

// createServer creates configured http.Server for the diagnostics endpoints
func createServer(log *logger.Logger, aggregator *Aggregator, httpPort int) *http.Server {
	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	r.Handle("/status", &statusHandler{log: log, aggregator: aggregator})
	srv := &http.Server{
		Addr: strings.Join([]string{"0.0.0.0", strconv.Itoa(httpPort)}, ":"),
		// Good practice to set timeouts to avoid Slowloris attacks.
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}
	return srv
}

// RunWebService starts up the diagnostics web service, terminates on shutdown signal.
// The caller must wg.Add(1) before starting the service goroutine.
func RunWebService(log *logger.Logger,
	wg *sync.WaitGroup,
	aggregator *Aggregator,
	httpPort int,
	shutdownSignal chan bool) {

	defer wg.Done()
	srv := createServer(log, aggregator, httpPort)
	log.Printf("Starting diagnostics server on port %d", httpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()
	<-shutdownSignal
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer serverCancelFunc()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down diagnostics server: %v", err)
	}
}
