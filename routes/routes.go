package routes

import (
	"github.com/fishram/Rankly/handlers"
	appMiddleware "github.com/fishram/Rankly/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes собирает дерево маршрутов приложения. Чтение рейтинга
// публично, запись матчей требует аутентификации, управление сезонами
// и настройками — прав администратора.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	playerHandler *handlers.PlayerHandler,
	matchHandler *handlers.MatchHandler,
	seasonHandler *handlers.SeasonHandler,
	settingsHandler *handlers.SettingsHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := appMiddleware.Authenticator(jwtSecret)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Get("/ws/rankings", webSocketHandler.ServeRankings)

	router.Route("/players", func(r chi.Router) {
		r.Get("/", playerHandler.List)
		r.Get("/{playerID}", playerHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", playerHandler.Create)
			r.Put("/{playerID}", playerHandler.Update)
			r.Post("/{playerID}/avatar", playerHandler.UploadAvatar)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(appMiddleware.RequireAdmin)
			r.Patch("/{playerID}/status", playerHandler.SetStatus)
			r.Delete("/{playerID}", playerHandler.Delete)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/", matchHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", matchHandler.Record)
			r.Delete("/{matchID}", matchHandler.Undo)
		})
	})

	router.Route("/seasons", func(r chi.Router) {
		r.Get("/", seasonHandler.List)
		r.Get("/{seasonID}", seasonHandler.Get)
		r.Get("/{seasonID}/standings", playerHandler.SeasonStandings)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(appMiddleware.RequireAdmin)
			r.Post("/", seasonHandler.Create)
			r.Post("/{seasonID}/end", seasonHandler.End)
			r.Delete("/{seasonID}", seasonHandler.Delete)
		})
	})

	router.Route("/settings", func(r chi.Router) {
		r.Get("/", settingsHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(appMiddleware.RequireAdmin)
			r.Put("/k-factor", settingsHandler.UpdateKFactor)
		})
	})
}
