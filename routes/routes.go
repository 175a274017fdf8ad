package routes

import (
	"github.com/blindcellar/tasting-system/handlers"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

func SetupRoutes(
	router *chi.Mux,
	eventHandler *handlers.EventHandler,
	participantHandler *handlers.ParticipantHandler,
	tastingHandler *handlers.TastingHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Post("/join", participantHandler.Join)

	router.Route("/events", func(r chi.Router) {
		r.Post("/", eventHandler.Create)
		r.Get("/", eventHandler.List)

		r.Route("/{eventID}", func(r chi.Router) {
			r.Get("/", eventHandler.Get)
			r.Patch("/", eventHandler.Update)
			r.Delete("/", eventHandler.Delete)
			r.Post("/start", eventHandler.Start)
			r.Post("/advance", eventHandler.Advance)
			r.Post("/cover", eventHandler.UploadCover)

			r.Post("/shuffle", participantHandler.Shuffle)
			r.Put("/order", participantHandler.Reorder)

			r.Put("/scores", tastingHandler.SubmitScore)
			r.Get("/leaderboard", tastingHandler.Leaderboard)
			r.Get("/guesses", tastingHandler.CategoryGuesses)
		})
	})

	router.Route("/participants/{participantID}", func(r chi.Router) {
		r.Post("/leave", participantHandler.Leave)
		r.Post("/ready", participantHandler.SetReady)
		r.Put("/answers", tastingHandler.SubmitAnswers)
		r.Put("/guesses/{wineNumber}", tastingHandler.SubmitGuesses)
	})

	router.Get("/ws/events/{eventID}", webSocketHandler.ServeWs)
}
