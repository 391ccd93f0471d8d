package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evdnx/levelbot/engine"
)

type levelView struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Direction string    `json:"direction"`
	Entry     float64   `json:"entry"`
	StopLoss  float64   `json:"stop_loss"`
	Target    float64   `json:"target"`
	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`
	State     string    `json:"state"`
	Disabled  bool      `json:"disabled"`
}

// newRouter exposes metrics, a health check, the live levels and the
// disable toggle. Engine access is serialised through mu.
func newRouter(eng *engine.Engine, mu *sync.Mutex) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/levels", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		levels := eng.Levels()
		mu.Unlock()
		out := make([]levelView, len(levels))
		for i, l := range levels {
			out[i] = levelView{
				ID: l.ID, Label: l.Label, Direction: l.Direction.String(),
				Entry: l.EntryPrice, StopLoss: l.StopLossPrice, Target: l.ProfitTargetPrice,
				ValidFrom: l.ValidFrom, ValidTo: l.ValidTo, State: l.State.String(), Disabled: l.Disabled,
			}
		}
		writeJSON(w, http.StatusOK, out)
	}).Methods(http.MethodGet)

	toggle := func(disabled bool) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			label := mux.Vars(req)["label"]
			mu.Lock()
			ok := eng.SetLevelDisabled(label, disabled)
			mu.Unlock()
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown level " + label})
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"label": label, "disabled": disabled})
		}
	}
	r.HandleFunc("/levels/{label}/disable", toggle(true)).Methods(http.MethodPost)
	r.HandleFunc("/levels/{label}/enable", toggle(false)).Methods(http.MethodPost)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
