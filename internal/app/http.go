package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// startHTTP builds the status router, starts the server in a goroutine and
// returns a channel that will carry any server error. A blank address
// disables the server.
func (a *App) startHTTP() <-chan error {
	errCh := make(chan error, 1)
	addr := a.cfg.Status.Address
	if addr == "" {
		return errCh
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/status", a.statusHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	a.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		errCh <- a.srv.ListenAndServe()
	}()
	return errCh
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// statusHandler reports daemon state for operators.
func (a *App) statusHandler(w http.ResponseWriter, _ *http.Request) {
	out := struct {
		Version      string `json:"version"`
		Commit       string `json:"commit,omitempty"`
		BuildDate    string `json:"build_date,omitempty"`
		State        string `json:"state"`
		Active       string `json:"active_channel,omitempty"`
		ViewLen      int    `json:"view_entries"`
		QueueLen     int    `json:"queue_len"`
		QueueCap     int    `json:"queue_cap"`
		QueueDropped uint64 `json:"queue_dropped"`
	}{
		Version:      a.version,
		Commit:       a.commit,
		BuildDate:    a.buildDate,
		State:        a.sched.State().String(),
		Active:       a.sched.Active(),
		ViewLen:      len(a.sched.Entries()),
		QueueLen:     a.queue.Len(),
		QueueCap:     a.queue.Cap(),
		QueueDropped: a.queue.Dropped(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
