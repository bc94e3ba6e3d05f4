package router

import (
	"net/http"
	"time"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/handlers"
	"github.com/senyabanana/freelance-service/internal/metrics"
	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/presence"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Handlers - набор HTTP-обработчиков API.
type Handlers struct {
	Accounts      *handlers.AccountHandler
	Competitions  *handlers.CompetitionHandler
	Proposals     *handlers.ProposalHandler
	Feedback      *handlers.FeedbackHandler
	Notifications *handlers.NotificationHandler
	Payments      *handlers.PaymentHandler
}

// Options - инфраструктура, общая для всех маршрутов.
type Options struct {
	Tokens         *auth.TokenIssuer
	Presence       *presence.Tracker
	Metrics        *metrics.Metrics
	Limiter        *RateLimiter
	AllowedOrigins []string
	Logger         *zap.Logger
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// InitRoutes собирает маршруты API.
func InitRoutes(h Handlers, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	if opts.Limiter != nil {
		r.Use(opts.Limiter.Handler)
	}
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	authenticated := func(r chi.Router) {
		r.Use(opts.Tokens.Authenticate)
		if opts.Presence != nil {
			r.Use(opts.Presence.Middleware)
		}
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", handlers.PingHandler)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Accounts.Register)
			r.Post("/login", h.Accounts.Login)
			r.Group(func(r chi.Router) {
				authenticated(r)
				r.Get("/profile", h.Accounts.Profile)
				r.Patch("/profile", h.Accounts.UpdateProfile)
			})
		})

		r.Route("/competitions", func(r chi.Router) {
			r.Get("/", h.Competitions.List)
			r.Get("/{id}", h.Competitions.Get)
			r.Get("/{id}/questions", h.Competitions.Questions)

			r.Group(func(r chi.Router) {
				authenticated(r)
				r.Post("/", h.Competitions.Create)
				r.Get("/my", h.Competitions.Mine)
				r.Get("/bookmarks", h.Competitions.Bookmarks)
				r.Patch("/{id}", h.Competitions.Update)
				r.Delete("/{id}", h.Competitions.Cancel)
				r.Post("/{id}/status", h.Competitions.ChangeStatus)
				r.Post("/{id}/select-winner", h.Competitions.SelectWinner)
				r.Post("/{id}/bookmark", h.Competitions.ToggleBookmark)
				r.Post("/{id}/questions", h.Competitions.AskQuestion)
				r.Post("/{id}/questions/{questionId}/answer", h.Competitions.AnswerQuestion)
				r.Get("/{id}/proposals", h.Proposals.ForCompetition)
			})
		})

		r.Route("/proposals", func(r chi.Router) {
			authenticated(r)
			r.Post("/", h.Proposals.Submit)
			r.Get("/my", h.Proposals.Mine)
			r.Get("/{id}", h.Proposals.Get)
			r.Patch("/{id}", h.Proposals.Update)
			r.Post("/{id}/withdraw", h.Proposals.Withdraw)
			r.Post("/{id}/score", h.Proposals.Score)
			r.Post("/{id}/attachments", h.Proposals.AddAttachment)
			r.Delete("/{id}/attachments/{attachmentId}", h.Proposals.DeleteAttachment)
		})

		r.Route("/feedback", func(r chi.Router) {
			r.Get("/users/{userId}/reviews", h.Feedback.UserReviews)
			r.Group(func(r chi.Router) {
				authenticated(r)
				r.Post("/reviews", h.Feedback.Create)
				r.Get("/competitions/{id}/reviews", h.Feedback.CompetitionReviews)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			authenticated(r)
			r.Get("/", h.Notifications.List)
			r.Post("/mark-read", h.Notifications.MarkRead)
			r.Post("/mark-all-read", h.Notifications.MarkAllRead)
			r.Get("/unread-count", h.Notifications.UnreadCount)
		})

		r.Route("/payments", func(r chi.Router) {
			authenticated(r)
			r.Get("/client", h.Payments.ClientPayments)
			r.Get("/freelancer", h.Payments.FreelancerPayments)
			r.Get("/{id}", h.Payments.Get)
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(models.AdminRole))
				r.Get("/", h.Payments.AdminList)
				r.Post("/{id}/status", h.Payments.UpdateStatus)
			})
		})
	})

	return r
}
