// Package adminserver implements the gateway's separate admin listener
// (spec §6: "Served on a separate admin port") on fasthttp, mirroring the
// original gateway's distinct admin/dispatch listener threads
// (SPEC_FULL [DOMAIN], original_source/src/zgw_server.cc's
// zgw_admin_thread_ vs zgw_dispatch_thread_).
package adminserver

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/baotiao/zeppelin-gateway-go/internal/handlers"
	"github.com/baotiao/zeppelin-gateway-go/internal/store"
)

// Server is the admin listener: admin_list_users, admin_put_user, and a
// Prometheus /metrics endpoint fed by the shared monitor (spec §4.8, §5).
type Server struct {
	addr   string
	st     store.Store
	fast   *fasthttp.Server
	Reg    *prometheus.Registry
}

// New builds an admin server bound to addr, serving requests against its
// own backend handle st (admin traffic is low-volume; it does not need
// the worker pool's exclusivity model).
func New(addr string, st store.Store, reg *prometheus.Registry) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin_list_users", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		handlers.AdminListUsers(w, st)
	})
	mux.HandleFunc("/admin_put_user/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		displayName := strings.TrimPrefix(r.URL.Path, "/admin_put_user/")
		if displayName == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		handlers.AdminPutUser(w, displayName, st)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	s := &Server{addr: addr, st: st, Reg: reg}
	handler := fasthttpadaptor.NewFastHTTPHandler(mux)
	s.fast = &fasthttp.Server{Handler: handler}
	return s
}

// ListenAndServe blocks serving the admin listener until Shutdown is called.
func (s *Server) ListenAndServe() error {
	return s.fast.ListenAndServe(s.addr)
}

func (s *Server) Shutdown() error {
	return s.fast.Shutdown()
}
