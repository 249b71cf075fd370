// Package httpapi is the operator-facing dashboard described in
// SPEC_FULL.md §10: a read-only view of the live directory, rendered
// as JSON and as a minimal HTML table, the way the original master's
// web/index.py CGI page did.
package httpapi

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"

	"doommaster/internal/directory"
)

// Snapshotter is the one operation the dashboard needs from the
// protocol engine: a point-in-time copy of the verified server list,
// obtained by asking the engine's own goroutine for it rather than
// reading its directory directly.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]directory.Metadata, error)
}

// WithCORS wraps next with permissive CORS headers.
func WithCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

// ServeServersAPI responds with the current verified server list as
// JSON, each entry carrying the same fields as a GET_METADATA_RESPONSE
// entry.
func ServeServersAPI(eng Snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		md, err := eng.Snapshot(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(md)
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>doommaster</title></head>
<body>
<h1>Registered servers</h1>
<table border="1" cellpadding="4">
<tr><th>Address</th><th>Name</th><th>Version</th><th>Max players</th><th>Age (s)</th></tr>
{{range .}}<tr><td>{{.Address}}:{{.Port}}</td><td>{{.Name}}</td><td>{{.Version}}</td><td>{{.MaxPlayers}}</td><td>{{.Age}}</td></tr>
{{end}}</table>
</body>
</html>
`))

// ServeIndex renders the same snapshot as a minimal HTML table,
// replacing the original's CGI script + index.template pair.
func ServeIndex(eng Snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		md, err := eng.Snapshot(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = indexTemplate.Execute(w, md)
	}
}
