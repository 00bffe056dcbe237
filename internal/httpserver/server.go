// internal/httpserver/server.go
//
// HTTP server wiring for the word game.
// Responsibilities:
//   - Router + middleware (request IDs, access logs, metrics, panic recovery,
//     timeouts, JSON, CORS).
//   - Public endpoints: "/", "/health", "/metrics", "/debug/words".
//   - Game endpoints under /game (see routes_game.go) and the WebSocket push
//     channel (see ws.go).
//   - Signed session tokens: a JWT whose subject is the session ID, handed out
//     in the body of POST /game/new and as an HttpOnly cookie.
//   - Idle session sweeping.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Sessions live in memory only; a restart or sweep ends them.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle/apps/wordgame/internal/game"
	"github.com/robalobadob/wordle/apps/wordgame/internal/metrics"
	"github.com/robalobadob/wordle/apps/wordgame/internal/store"
	"github.com/robalobadob/wordle/apps/wordgame/internal/words"
)

// Config carries the server settings.
type Config struct {
	Secret        string        // HS256 key for session tokens
	SessionTTL    time.Duration // token lifetime and idle sweep horizon
	CookieName    string
	ClientOrigin  string // allowed CORS / WebSocket origin
	Secure        bool   // Secure + SameSite=None cookies
	DefaultLength int
}

// ConfigFromEnv reads JWT_SECRET, SESSION_TTL, COOKIE_NAME, CLIENT_ORIGIN,
// NODE_ENV and WORD_LENGTH, falling back to development defaults.
func ConfigFromEnv() Config {
	cfg := Config{
		Secret:        getEnv("JWT_SECRET", "dev_secret_change_me"),
		SessionTTL:    2 * time.Hour,
		CookieName:    getEnv("COOKIE_NAME", "wordle_session"),
		ClientOrigin:  getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Secure:        os.Getenv("NODE_ENV") == "production",
		DefaultLength: game.DefaultWordLength,
	}
	if d, err := time.ParseDuration(os.Getenv("SESSION_TTL")); err == nil && d > 0 {
		cfg.SessionTTL = d
	}
	if n, err := strconv.Atoi(os.Getenv("WORD_LENGTH")); err == nil {
		cfg.DefaultLength = n
	}
	return cfg
}

// Server bundles router, session store and word provider.
type Server struct {
	r        *chi.Mux
	store    store.Store
	provider *words.Provider
	cfg      Config
	base     context.Context // parent of every session's fetches
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, p *words.Provider, cfg Config) *Server {
	if cfg.DefaultLength == 0 {
		cfg.DefaultLength = game.DefaultWordLength
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "wordle_session"
	}
	s := &Server{r: chi.NewRouter(), store: st, provider: p, cfg: cfg, base: context.Background()}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	// request-scoped zerolog logger + one access line per request
	s.r.Use(hlog.NewHandler(log.Logger))
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(metrics.Middleware)
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.cors)          // credentials-friendly CORS

	// WebSocket stays outside the timeout/JSON group: the connection is
	// long-lived and the upgrade writes its own headers.
	s.r.With(s.requireSession).Get("/game/ws", s.handleWS)
	s.r.Handle("/metrics", promhttp.Handler())

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"wordgame","endpoints":["/health","/metrics","POST /game/new","GET /game/state","POST /game/key","POST /game/guess","POST /game/length","POST /game/reset","GET /game/ws"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
			stats := map[string]int{}
			for l, n := range s.provider.Bank().Stats() {
				stats[strconv.Itoa(l)] = n
			}
			writeJSON(w, http.StatusOK, map[string]any{"lengths": stats, "sessions": s.store.Len()})
		})

		s.mountGame(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
		})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Run serves on addr until ctx is cancelled, sweeping idle sessions every
// minute, then shuts down gracefully and closes the remaining sessions.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}

	go s.sweepLoop(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	n := s.store.Sweep(context.Background(), time.Now().Add(time.Hour))
	log.Info().Int("sessions", n).Msg("server stopped")
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

func (s *Server) sweepLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.store.Sweep(ctx, now.Add(-s.cfg.SessionTTL)); n > 0 {
				log.Info().Int("swept", n).Msg("idle sessions closed")
			}
		}
	}
}

// ----------------------------- middleware ----------------------------------

// accessLog writes one line per request through the request logger.
func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("request_id", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.ClientOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ctxSessionKey is the context key type for the resolved *game.Session.
type ctxSessionKey struct{}

// requireSession resolves the session token and injects the session into
// the request context. 401 for a missing or invalid token, 404 when the
// session is gone.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := s.tokenFrom(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		id, err := s.parseToken(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		sess, err := s.store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, "session_expired")
			return
		}
		ctx := context.WithValue(r.Context(), ctxSessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the session injected by requireSession.
func sessionFrom(r *http.Request) *game.Session {
	sess, _ := r.Context().Value(ctxSessionKey{}).(*game.Session)
	return sess
}

// ------------------------------ tokens & cookies ---------------------------

// signToken creates an HS256 JWT whose subject is the session ID.
func (s *Server) signToken(sessionID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.cfg.SessionTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	ss, err := t.SignedString([]byte(s.cfg.Secret))
	return ss, exp, err
}

// parseToken verifies tok and returns the session ID it carries.
func (s *Server) parseToken(tok string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !t.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// tokenFrom extracts a token from the Authorization header, the session
// cookie or the token query parameter (browsers cannot set headers on
// WebSocket handshakes).
func (s *Server) tokenFrom(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

// setSessionCookie writes the session token cookie.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if s.cfg.Secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// ------------------------------- small util --------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
