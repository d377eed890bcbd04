package middleware

import (
	"encoding/json"
	"net"
	"net/http"
)

// Detail is the error body shared with the endpoints.
type Detail struct {
	Detail string `json:"detail"`
}

// InternalErrorDetail is returned for every unexpected failure.
const InternalErrorDetail = "An unexpected internal server error occurred."

func writeDetail(w http.ResponseWriter, code int, detail string) {
	response, _ := json.Marshal(Detail{Detail: detail})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// RemoteIP extracts the client address from r.RemoteAddr. Proxy headers
// must already have been applied by the outer handler chain.
func RemoteIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}
