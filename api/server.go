/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/children/*       Child management
  /api/subjects/*       Subject management
  /api/records/*        Record listing and the toggle
  /api/days/{date}      Daily checklist
  /api/school-year      School year window
  /api/summary          Aggregated totals
  /api/ranges           Preset date ranges
  /api/reports/{kind}   XLSX downloads
  /api/reset            Clear and reseed
  /                     Endpoint index

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins are the dev-server origins allowed when none are
// configured.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/children", func(r chi.Router) {
			r.Get("/", h.ListChildren)
			r.Post("/", h.CreateChild)
			r.Put("/{id}", h.UpdateChild)
			r.Delete("/{id}", h.DeleteChild)
		})

		r.Route("/subjects", func(r chi.Router) {
			r.Get("/", h.ListSubjects)
			r.Post("/", h.CreateSubject)
			r.Put("/{id}", h.UpdateSubject)
			r.Delete("/{id}", h.DeleteSubject)
		})

		r.Route("/records", func(r chi.Router) {
			r.Get("/", h.ListRecords)
			r.Post("/toggle", h.ToggleRecord)
		})
		r.Get("/days/{date}", h.GetDay)

		r.Get("/school-year", h.GetSchoolYear)
		r.Put("/school-year", h.UpdateSchoolYear)

		r.Get("/summary", h.GetSummary)
		r.Get("/ranges", h.ListRanges)
		r.Get("/reports/{kind}", h.DownloadReport)

		r.Post("/reset", h.Reset)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>HomeSchool Tracker</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>HomeSchool Tracker API</h1>
<ul>
<li><a href="/api/children">/api/children</a> - Children</li>
<li><a href="/api/subjects">/api/subjects</a> - Subjects</li>
<li><a href="/api/school-year">/api/school-year</a> - School year</li>
<li><a href="/api/summary">/api/summary</a> - Attendance summary</li>
<li><a href="/api/ranges">/api/ranges</a> - Preset ranges</li>
<li><a href="/api/reports/attendance">/api/reports/attendance</a> - Attendance report (XLSX)</li>
</ul>
</body>
</html>`))
	})

	return r
}
