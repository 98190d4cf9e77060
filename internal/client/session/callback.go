package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const callbackPage = `<!doctype html><title>SecureNotes</title>
<p>Authorization received. You can close this window and return to the terminal.</p>
`

// CallbackHandler serves the redirect URI. A GET on its path records the full
// redirect URL (scheme and host taken from redirectURI) into loc and then
// calls done once.
func CallbackHandler(redirectURI *url.URL, loc Location, done func(), log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	var once sync.Once
	path := redirectURI.EscapedPath()
	if path == "" {
		path = "/"
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Get(path, func(w http.ResponseWriter, req *http.Request) {
		received := *redirectURI
		received.RawQuery = req.URL.RawQuery
		received.Fragment = ""
		if err := loc.Replace(&received); err != nil {
			log.Error("cannot record redirect", zap.Error(err))
			http.Error(w, "cannot record redirect", http.StatusInternalServerError)
			return
		}
		log.Debug("redirect received", zap.Bool("has_code", req.URL.Query().Has("code")))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(callbackPage))
		once.Do(done)
	})
	return r
}

// ListenForCallback listens on the host of redirectURI until one redirect has
// been recorded into loc or ctx is done.
func ListenForCallback(ctx context.Context, redirectURI string, loc Location, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	u, err := url.Parse(redirectURI)
	if err != nil {
		return fmt.Errorf("parse redirect URI: %w", err)
	}
	if u.Scheme != "http" || u.Host == "" {
		return fmt.Errorf("redirect URI %q is not a local http address", redirectURI)
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", u.Host, err)
	}

	received := make(chan struct{})
	srv := &http.Server{
		Handler:           CallbackHandler(u, loc, func() { close(received) }, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case <-received:
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shErr := srv.Shutdown(shutdownCtx); shErr != nil && !errors.Is(shErr, http.ErrServerClosed) {
		log.Warn("callback listener shutdown", zap.Error(shErr))
	}
	return err
}
