package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/evaluator"
	"solana-signal-trader/internal/observability"
	"solana-signal-trader/internal/reporting"
	"solana-signal-trader/internal/scheduler"
)

// reportSource exposes the result of the latest evaluator tick.
type reportSource interface {
	LastReport() *evaluator.Report
}

// watchedTokens lists the current candidates.
type watchedTokens interface {
	All() []domain.WatchedToken
}

// api serves health, metrics and operator endpoints.
type api struct {
	mode      string
	started   time.Time
	watchList watchedTokens
	reports   reportSource
	trades    *reporting.Generator
	evaluate  *scheduler.Job
	jobs      []*scheduler.Job
	log       logrus.FieldLogger
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", a.handleStatus)
	mux.HandleFunc("/watchlist", a.handleWatchList)
	mux.HandleFunc("/trades", a.handleTrades)
	mux.HandleFunc("/evaluate", a.handleEvaluate)
	return mux
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status     string             `json:"status"`
	Mode       string             `json:"mode"`
	Uptime     string             `json:"uptime"`
	Started    time.Time          `json:"started"`
	Watched    int                `json:"watched"`
	Jobs       []scheduler.Status `json:"jobs"`
	LastReport *evaluator.Report  `json:"last_report,omitempty"`
}

func (a *api) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:     "running",
		Mode:       a.mode,
		Uptime:     time.Since(a.started).Round(time.Second).String(),
		Started:    a.started,
		Watched:    len(a.watchList.All()),
		LastReport: a.reports.LastReport(),
	}
	for _, j := range a.jobs {
		resp.Jobs = append(resp.Jobs, j.Status())
	}
	writeJSON(w, http.StatusOK, resp)
}

// watchedEntry is one row of /watchlist.
type watchedEntry struct {
	Address string    `json:"address"`
	AddedAt time.Time `json:"added_at"`
	Age     string    `json:"age"`
}

func (a *api) handleWatchList(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	tokens := a.watchList.All()
	out := make([]watchedEntry, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, watchedEntry{
			Address: t.Address,
			AddedAt: t.AddedAt,
			Age:     t.Age(now).Round(time.Second).String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleTrades serves the journal report as JSON, or as Markdown or CSV
// with ?format=md|csv.
func (a *api) handleTrades(w http.ResponseWriter, r *http.Request) {
	report, err := a.trades.Generate(r.Context())
	if err != nil {
		a.log.WithError(err).Error("trade report failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	switch r.URL.Query().Get("format") {
	case "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(reporting.RenderMarkdown(report)))
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(reporting.RenderCSV(report.Positions)))
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

// handleEvaluate runs a tick through the shared job, so it never overlaps
// a scheduled run.
func (a *api) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "use POST"})
		return
	}

	a.log.Info("manual evaluation requested")
	if !a.evaluate.TryRun(r.Context()) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "evaluation already running"})
		return
	}
	writeJSON(w, http.StatusOK, a.reports.LastReport())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
