package apigateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Upstreams são as URLs base dos serviços atrás do gateway
type Upstreams struct {
	Auction     string
	Submitter   string
	Wallet      string
	Timer       string
	Broadcaster string
}

// Gateway é o ponto de entrada único: /api/* vai para os serviços HTTP e /ws
// para o update-broadcaster
type Gateway struct {
	log         *zap.Logger
	auction     *httputil.ReverseProxy
	submitter   *httputil.ReverseProxy
	wallet      *httputil.ReverseProxy
	timer       *httputil.ReverseProxy
	broadcaster *httputil.ReverseProxy
}

func New(log *zap.Logger, up Upstreams) (*Gateway, error) {
	g := &Gateway{log: log}
	for _, t := range []struct {
		name string
		raw  string
		dst  **httputil.ReverseProxy
	}{
		{"auction", up.Auction, &g.auction},
		{"submitter", up.Submitter, &g.submitter},
		{"wallet", up.Wallet, &g.wallet},
		{"timer", up.Timer, &g.timer},
		{"broadcaster", up.Broadcaster, &g.broadcaster},
	} {
		rp, err := g.proxy(t.name, t.raw)
		if err != nil {
			return nil, err
		}
		*t.dst = rp
	}
	return g, nil
}

func (g *Gateway) proxy(name, raw string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s upstream %q: invalid url", name, raw)
	}
	rp := httputil.NewSingleHostReverseProxy(u)
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		g.log.Warn("upstream failed", zap.String("upstream", name), zap.String("path", r.URL.Path), zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
	}
	return rp, nil
}

// Router retorna as rotas do gateway
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withCORS)

	// websocket e stats seguem sem prefixo
	r.Handle("/ws", g.broadcaster)
	r.Handle("/ws/stats", g.broadcaster)

	r.Handle("/api/*", http.StripPrefix("/api", http.HandlerFunc(g.dispatch)))
	return r
}

func (g *Gateway) dispatch(w http.ResponseWriter, r *http.Request) {
	rp := g.route(r.Method, r.URL.Path)
	if rp == nil {
		http.NotFound(w, r)
		return
	}
	rp.ServeHTTP(w, r)
}

// route escolhe o serviço pelo método e pelo caminho já sem /api
func (g *Gateway) route(method, path string) *httputil.ReverseProxy {
	seg := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case seg[0] == "wallet":
		return g.wallet
	case path == "/timer/status":
		return g.timer
	case method == http.MethodPost && len(seg) == 3 && seg[0] == "lots" && seg[2] == "bids":
		return g.submitter
	case method == http.MethodPost && len(seg) == 4 && seg[0] == "lots" && seg[2] == "timer" && seg[3] == "reset":
		return g.timer
	case method == http.MethodPost && len(seg) == 3 && seg[0] == "auctions" && seg[2] == "start":
		return g.timer
	case seg[0] == "auctions" || seg[0] == "lots":
		return g.auction
	}
	return nil
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
