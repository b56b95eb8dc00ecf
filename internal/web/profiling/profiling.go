// Package profiling serves pprof and runtime statistics. The endpoints expose
// goroutine stacks and heap contents; mount them only on trusted servers.
package profiling

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/go-chi/chi/v5"

	"github.com/mcrud/mcrud/internal/web/response"
)

// Path is where the app mounts Handler
const Path = "/debug"

var profiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

// Handler serves /pprof/* and /stats relative to its mount point. Block and
// mutex profiling are switched on when the handler is built.
func Handler() http.Handler {
	runtime.SetBlockProfileRate(1)
	runtime.SetMutexProfileFraction(1)

	r := chi.NewRouter()
	r.Route("/pprof", func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		for _, name := range profiles {
			r.Handle("/"+name, pprof.Handler(name))
		}
	})
	r.Get("/stats", StatsHandler)

	return r
}

// Stats is a snapshot of the runtime
type Stats struct {
	Goroutines int    `json:"goroutines"`
	NumCPU     int    `json:"num_cpu"`
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

// RuntimeStats reads the current runtime statistics
func RuntimeStats() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Stats{
		Goroutines: runtime.NumGoroutine(),
		NumCPU:     runtime.NumCPU(),
		Alloc:      m.Alloc,
		TotalAlloc: m.TotalAlloc,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
	}
}

// StatsHandler serves RuntimeStats in the response envelope
func StatsHandler(w http.ResponseWriter, r *http.Request) {
	response.RenderSuccess(w, RuntimeStats(), "")
}
