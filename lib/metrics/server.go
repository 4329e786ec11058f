package metrics

import (
	"net"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the default registry at /metrics.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// StartServer registers the collectors and serves them on listen until
// Close. A ":0" port picks a free one, see Addr.
func StartServer(listen string) (*Server, error) {
	RegisterMetrics()
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, errors.Wrapf(err, "metrics listen %s", listen)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s := &Server{srv: &http.Server{Handler: mux}, ln: ln}
	go s.srv.Serve(ln)
	return s, nil
}

// Addr is the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close stops serving and releases the port.
func (s *Server) Close() error {
	return s.srv.Close()
}
