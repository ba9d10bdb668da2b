package swaggerkit

import "net/http"

// docReader is a seam so tests can inject a different spec body
var docReader = func() string {
	return `{"openapi":"3.0.3","info":{"title":"Meterbox API","version":"0.1.0"},"paths":{}}`
}

// serveDocJSON serves the OpenAPI skeleton so the UI can load
// generated docs can replace docReader at init when available
func serveDocJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte(docReader()))
	}
}
