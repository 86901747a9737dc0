package gateway

import "net/http"

// CORS adds the permissive headers the browser needs on every response.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		next.ServeHTTP(w, r)
	})
}

// postOnly answers preflight with an empty 204 and rejects anything that
// is not a POST before the handler runs.
func postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPost:
			next(w, r)
		default:
			respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}
