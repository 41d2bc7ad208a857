// Package swagger serves the OpenAPI document of the status API.
package swagger

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Path is where the document is mounted.
const Path = "/openapi.yaml"

// Register attaches the OpenAPI document route to r.
//
//	GET /openapi.yaml -> embedded OpenAPI document
func Register(r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Get(Path, Handle)
}

// Handle writes the embedded document.
func Handle(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(OpenAPI)
}
