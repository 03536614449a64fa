// Package callback hosts the loopback page the provider redirects back to.
// The Server doubles as the client's navigator: it knows the current
// location, opens the system browser for redirects, and rewrites the
// location after a successful exchange.
package callback

import (
	"context"
	"github.com/mousybusiness/nowplaying/internal/static"
	"github.com/mousybusiness/nowplaying/pkg/authn"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

const defaultTitle = "Now Playing"

type (
	// Handler is the part of the auth flow the callback page drives.
	Handler interface {
		HandleCallbackIfPresent(ctx context.Context) (bool, error)
		State(ctx context.Context) (authn.State, error)
	}

	Config struct {
		// Title for the callback pages
		// default Now Playing
		Title string

		// AppURL is the initial location, e.g. http://localhost:5173/
		AppURL string

		// OpenBrowser opens redirects in the system browser on desktops.
		// Redirect targets are always logged so they can be visited manually.
		OpenBrowser bool
	}

	Server struct {
		config Config
		open   func(string) error

		mu       sync.Mutex
		location *url.URL

		// callbacks are handled one at a time
		handleMu sync.Mutex
		results  chan error

		server *http.Server
		addr   string
	}
)

func New(config Config) (*Server, error) {
	if config.AppURL == "" {
		return nil, errors.New("require AppURL")
	}

	if config.Title == "" {
		config.Title = defaultTitle
	}

	loc, err := url.Parse(config.AppURL)
	if err != nil || loc.Host == "" {
		return nil, errors.Errorf("invalid app url: %v", config.AppURL)
	}

	return &Server{
		config:   config,
		open:     static.Open,
		location: loc,
		results:  make(chan error, 1),
	}, nil
}

func (s *Server) Location() *url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *s.location
	return &u
}

func (s *Server) RedirectTo(target string) error {
	log.Infof("Visit the URL for the auth dialog: %v", target)

	if s.config.OpenBrowser && static.IsDesktop() {
		if err := s.open(target); err != nil {
			log.WithError(err).Warn("couldn't open browser, please visit manually")
		}
	}
	return nil
}

func (s *Server) ReplaceLocation(target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.location.Parse(target)
	if err != nil {
		return errors.Wrapf(err, "invalid location %v", target)
	}
	s.location = u
	return nil
}

// Handler routes callbackPath to the auth flow and everything else to the status page.
func (s *Server) Handler(callbackPath string, h Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		s.handleCallback(w, r, h)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.handleRoot(w, r, h)
	})
	return mux
}

// Listen serves the callback on the host and path of redirectURL.
func (s *Server) Listen(redirectURL string, h Handler) error {
	u, err := url.Parse(redirectURL)
	if err != nil || u.Host == "" || u.Path == "" {
		return errors.Errorf("invalid redirect url: %v", redirectURL)
	}

	if s.server != nil {
		_ = s.server.Close()
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %v", u.Host)
	}

	server := &http.Server{
		Handler: s.Handler(u.Path, h),
	}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(errors.Wrap(err, "failed to serve login callback"))
		}
	}()

	s.server = server
	s.addr = ln.Addr().String()
	log.Debugf("listening for callback on %v", redirectURL)
	return nil
}

// Addr is the address Listen bound, empty before Listen.
func (s *Server) Addr() string {
	return s.addr
}

// Wait blocks until a callback has been handled and returns its outcome.
func (s *Server) Wait(ctx context.Context) error {
	select {
	case err := <-s.results:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request, h Handler) {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()

	log.Debugf("redirect invoked")
	s.visit(r)

	ok, err := h.HandleCallbackIfPresent(r.Context())
	if err != nil {
		s.report(err)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(static.FailedHTML(s.config.Title, err.Error())))
		return
	}

	if !ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(static.FailedHTML(s.config.Title, "missing authorization code")))
		return
	}

	// served directly, the listener may close as soon as the login is reported
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(static.SuccessHTML(s.config.Title)))
	s.report(nil)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request, h Handler) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.visit(r)

	state, err := h.State(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if state == authn.StateLoggedIn {
		_, _ = w.Write([]byte(static.SuccessHTML(s.config.Title)))
		return
	}
	_, _ = w.Write([]byte(static.StatusHTML(s.config.Title, strings.ReplaceAll(string(state), "_", " "))))
}

// visit records the request as the current location.
func (s *Server) visit(r *http.Request) {
	u := &url.URL{
		Scheme:   "http",
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}
	if r.TLS != nil {
		u.Scheme = "https"
	}

	s.mu.Lock()
	s.location = u
	s.mu.Unlock()
}

func (s *Server) report(err error) {
	select {
	case s.results <- err:
	default:
	}
}
