package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/companion/emotion"
	"github.com/maastricht-university/companion/router"
	"github.com/maastricht-university/companion/routine"
)

type Handler interface {
	Handle(ctx context.Context, req router.Request) (router.Response, error)
}

// Emotions is the read side of the fusion engine.
type Emotions interface {
	Current() (emotion.CombinedEmotion, bool)
	History(window time.Duration) []emotion.CombinedEmotion
	Stats(window time.Duration) map[string]float64
	Running() bool
}

type Routines interface {
	Get(userID string) (routine.Record, bool)
	Users() []string
}

type Config struct {
	CORSOrigins []string
	// StreamPoll is how often /ws/emotion checks for a new fused record.
	StreamPoll time.Duration
}

type Server struct {
	cfg      Config
	chat     Handler
	emotions Emotions
	routines Routines
	gatherer prometheus.Gatherer
	log      *logrus.Entry
	upgrader websocket.Upgrader
}

func New(cfg Config, chat Handler, emotions Emotions, routines Routines, g prometheus.Gatherer, log *logrus.Entry) *Server {
	if cfg.StreamPoll <= 0 {
		cfg.StreamPoll = 250 * time.Millisecond
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return &Server{
		cfg:      cfg,
		chat:     chat,
		emotions: emotions,
		routines: routines,
		gatherer: g,
		log:      log.WithField("component", "server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	}).Handler)
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Post("/chat", s.postChat)
	r.Route("/emotion", func(r chi.Router) {
		r.Get("/current", s.emotionCurrent)
		r.Get("/history", s.emotionHistory)
		r.Get("/stats", s.emotionStats)
	})
	r.Get("/users", s.listUsers)
	r.Get("/users/{id}/routine", s.userRoutine)
	r.Get("/ws/emotion", s.streamEmotion)
	return r
}

type ctxKey struct{}

// requestID tags each request with an id (caller-supplied or fresh) and logs it.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		log := s.log.WithFields(logrus.Fields{"request_id": id, "method": r.Method, "path": r.URL.Path})
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, log)))
		log.WithField("took", time.Since(start)).Debug("request served")
	})
}

func (s *Server) logger(r *http.Request) *logrus.Entry {
	if log, ok := r.Context().Value(ctxKey{}).(*logrus.Entry); ok {
		return log
	}
	return s.log
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
