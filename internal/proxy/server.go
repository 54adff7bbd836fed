package proxy

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"profilecard/internal/avatar"
	"profilecard/internal/hostpage"
	"profilecard/internal/prefs"
	"profilecard/internal/restore"
)

const defaultIndexHTML = `<!DOCTYPE html>
<html><head><title>profilecard</title></head><body>
<h1>profilecard</h1>
<form action="/go" method="get">
User ID: <input name="id" size="12" inputmode="numeric">
<button type="submit">Open profile</button>
</form>
<p><a href="/settings">Settings</a></p>
</body></html>`

// Config describes server wiring.
type Config struct {
	// Upstream is the host site base URL, e.g. https://www.pekora.zip.
	Upstream  string
	Fetcher   hostpage.Fetcher
	Pipeline  *restore.Pipeline
	Prefs     *prefs.Store
	Avatars   *avatar.Scaler
	AvatarURL func(id string) string
	Logger    *zap.Logger
	// Closers are released by Server.Close in order.
	Closers []io.Closer
}

// Server exposes the rewriting proxy.
type Server struct {
	cfg      Config
	upstream *url.URL
	router   chi.Router
	handler  http.Handler
	logger   *zap.Logger
}

// New wires a new proxy server with the provided configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	base, err := url.Parse(strings.TrimRight(cfg.Upstream, "/"))
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:      cfg,
		upstream: base,
		router:   chi.NewRouter(),
		logger:   cfg.Logger.Named("proxy"),
	}
	s.registerRoutes()
	s.handler = withLogging(s.logger, s.router)
	return s, nil
}

// Handler exposes the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler { return s }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close releases everything listed in Config.Closers and reports all
// failures together.
func (s *Server) Close() error {
	var err error
	for _, c := range s.cfg.Closers {
		if c != nil {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

func (s *Server) registerRoutes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/", s.handleRoot)
	s.router.Get("/go", s.handleGo)
	s.router.Get("/users/{id}/profile", s.handleProfile)
	s.router.Get("/settings", s.handleSettings)
	s.router.Post("/settings", s.handleSettingsUpdate)
	s.router.Get("/avatar/{id}", s.handleAvatar)
	s.router.Get("/ping", s.handlePing)
}

// upstreamURL maps a local request URL onto the host site.
func (s *Server) upstreamURL(u *url.URL) string {
	out := *s.upstream
	out.Path = s.upstream.Path + u.Path
	out.RawPath = ""
	out.RawQuery = u.RawQuery
	out.Fragment = ""
	return out.String()
}
