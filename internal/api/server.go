package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/peergrove/groupd/internal/metrics"
	"github.com/peergrove/groupd/internal/service"
	"github.com/peergrove/groupd/pkg/errs"
)

// actorHeader carries the opaque caller identity. Authentication is the
// hosting platform's job; the engine trusts the header it is handed.
const actorHeader = "X-User-ID"

// Server provides the HTTP API.
type Server struct {
	svc     *service.Service
	logger  *logrus.Logger
	metrics *metrics.Metrics
	router  chi.Router
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger, m *metrics.Metrics) *Server {
	s := &Server{svc: svc, logger: logger, metrics: m, router: chi.NewRouter()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", actorHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/groups", func(r chi.Router) {
			r.Get("/", s.handleListGroups)
			r.Post("/", s.handleCreateGroup)

			r.Route("/{groupID}", func(r chi.Router) {
				r.Get("/", s.handleGetGroup)
				r.Post("/join", s.handleJoinGroup)
				r.Post("/leave", s.handleLeaveGroup)
				r.Post("/transfer-admin", s.handleTransferAdmin)

				r.Get("/members", s.handleListMembers)
				r.Put("/members/{userID}/role", s.handleChangeRole)
				r.Delete("/members/{userID}", s.handleRemoveMember)

				r.Get("/requests", s.handleListJoinRequests)
				r.Post("/requests", s.handleRequestJoin)
				r.Post("/requests/{requestID}/approve", s.handleApproveRequest)
				r.Post("/requests/{requestID}/reject", s.handleRejectRequest)

				r.Get("/invitations", s.handleListInvitations)
				r.Post("/invitations", s.handleInviteUser)

				r.Get("/posts", s.handleListPosts)
				r.Post("/posts", s.handleCreatePost)
			})
		})

		r.Route("/invitations/{invitationID}", func(r chi.Router) {
			r.Post("/accept", s.handleAcceptInvitation)
			r.Post("/decline", s.handleDeclineInvitation)
		})

		r.Route("/posts/{postID}", func(r chi.Router) {
			r.Get("/", s.handleGetPost)
			r.Delete("/", s.handleDeletePost)
			r.Post("/approve", s.handleApprovePost)
			r.Post("/pin", s.handleTogglePin)
			r.Post("/hide", s.handleToggleHide)
			r.Post("/reactions", s.handleToggleReaction)
			r.Post("/comments", s.handleAddComment)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps a typed service error onto an HTTP status.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	var status int
	switch errs.KindOf(err) {
	case errs.KindValidation:
		status = http.StatusBadRequest
	case errs.KindForbidden:
		status = http.StatusForbidden
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindConflict:
		status = http.StatusConflict
	case errs.KindInvalidState:
		status = http.StatusUnprocessableEntity
	case errs.KindUnavailable:
		status = http.StatusServiceUnavailable
	default:
		s.logger.WithError(err).Error("internal error")
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.respondError(w, status, err.Error())
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// requireActor reads the caller identity header.  It writes an error
// response and returns "" when the header is absent.
func (s *Server) requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := r.Header.Get(actorHeader)
	if actor == "" {
		s.respondError(w, http.StatusBadRequest, actorHeader+" header is required")
		return "", false
	}
	return actor, true
}
