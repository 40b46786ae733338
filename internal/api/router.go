package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/growthpath/growthpath-be/internal/api/handlers"
	"github.com/growthpath/growthpath-be/internal/services"
	"github.com/growthpath/growthpath-be/internal/websocket"
)

const requestTimeout = 30 * time.Second

// Authenticator guards routes that need a signed-in user.
type Authenticator interface {
	handlers.SessionManager
	Middleware() func(http.Handler) http.Handler
}

// Dependencies holds everything the router wires into handlers.
type Dependencies struct {
	Users    services.UserServiceProvider
	Children services.ChildServiceProvider
	Paths    services.PathServiceProvider
	Events   services.EventServiceProvider
	Sessions Authenticator
	Hub      *websocket.Hub
	DB       handlers.Pinger
	Stats    handlers.StatsProvider
	Reporter handlers.ErrorReporter

	CORSOrigins  []string
	CookieSecure bool
	LoginRate    int
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(deps.Users, deps.Sessions, deps.CookieSecure, deps.Reporter)
	childHandler := handlers.NewChildHandler(deps.Children, deps.Reporter)
	pathHandler := handlers.NewPathHandler(deps.Paths, deps.Reporter)
	eventHandler := handlers.NewEventHandler(deps.Events, deps.Reporter)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.CORSOrigins)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Stats)

	loginLimiter := NewIPRateLimiter(deps.LoginRate)

	r.Get("/health", healthHandler.Check)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.With(loginLimiter.Middleware).Post("/register", userHandler.Register)
			r.With(loginLimiter.Middleware).Post("/login", userHandler.Login)
			r.Post("/logout", userHandler.Logout)
			r.Get("/session", userHandler.Session)
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.Sessions.Middleware())

			// WebSocket connection endpoint, exempt from the request timeout.
			r.Get("/ws", wsHandler.Serve)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(requestTimeout))

				r.Route("/user", func(r chi.Router) {
					r.Get("/profile", userHandler.GetProfile)
					r.Put("/profile", userHandler.UpdateProfile)
					r.Put("/password", userHandler.ChangePassword)
					r.Get("/activity", eventHandler.GetRecent)

					r.Route("/children", func(r chi.Router) {
						r.Get("/", childHandler.GetAll)
						r.Post("/", childHandler.Create)
						r.Delete("/", childHandler.DeleteFromBody)
						r.Route("/{childId}", func(r chi.Router) {
							r.Get("/", childHandler.Get)
							r.Put("/", childHandler.Update)
							r.Delete("/", childHandler.Delete)
							r.Get("/paths", childHandler.GetPaths)
							r.Get("/skills", childHandler.GetSkills)
							r.Post("/paths/{pathId}", childHandler.Enroll)
							r.Delete("/paths/{pathId}", childHandler.Unenroll)
						})
					})
				})

				r.Route("/paths", func(r chi.Router) {
					r.Get("/", pathHandler.Search)
					r.Get("/{pathId}", pathHandler.Get)
				})
			})
		})
	})

	return r
}
