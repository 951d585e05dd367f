package serve

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/cigdemahmet27/rtsched/pkg/report"
	"github.com/cigdemahmet27/rtsched/pkg/sched"
	"github.com/cigdemahmet27/rtsched/pkg/workload"
)

// Server exposes one finished simulation run as a read-only JSON API, for
// timeline frontends.
type Server struct {
	runID   string
	result  *sched.Result
	ws      *workload.Workload
	summary report.Summary
	colors  map[int]string
}

// New wraps a finished run.
func New(res *sched.Result, ws *workload.Workload, summary report.Summary) *Server {
	return &Server{
		runID:   uuid.NewString(),
		result:  res,
		ws:      ws,
		summary: summary,
		colors:  report.TaskColors(ws),
	}
}

type statusPayload struct {
	RunID   string         `json:"runId"`
	Summary report.Summary `json:"summary"`
}

type taskPayload struct {
	workload.Task
	Color string `json:"color"`
}

// Router wires the API routes.
func (s *Server) Router() *httprouter.Router {
	router := httprouter.New()
	router.GET("/api/status", s.getStatus)
	router.GET("/api/tasks", s.getTasks)
	router.GET("/api/timeline", s.getTimeline)
	return router
}

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, statusPayload{RunID: s.runID, Summary: s.summary})
}

func (s *Server) getTasks(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	tasks := []taskPayload{}
	for _, t := range s.ws.Periodic {
		tasks = append(tasks, taskPayload{Task: t, Color: s.colors[t.ID]})
	}
	for _, t := range s.ws.Aperiodic {
		tasks = append(tasks, taskPayload{Task: t, Color: s.colors[t.ID]})
	}
	writeJSON(w, tasks)
}

func (s *Server) getTimeline(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, s.result.Events)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
