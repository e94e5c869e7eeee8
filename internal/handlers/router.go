package handlers

import (
	"net/http"

	"trivia/internal/config"
	"trivia/internal/middleware"
	"trivia/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	cfg     config.Config
	service CreditService
	hub     *websocket.Hub
}

func New(cfg config.Config, service CreditService, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:     cfg,
		service: service,
		hub:     hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Service-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authed := middleware.Auth(h.cfg.JWTSecret)
	router.With(authed).Get("/balance", h.GetBalance)
	router.With(authed).Get("/balance/self-check", h.SelfCheck)
	router.With(authed).Post("/plays/check", h.CanPlay)
	router.With(authed).Post("/plays/deduct", h.Deduct)
	router.With(authed).Get("/purchases/packages", h.ListPackages)
	router.With(authed).Post("/purchases", h.Purchase)
	router.With(authed).Get("/ledger", h.History)
	router.Get("/ws/balances", h.WSBalances)

	serviceKey := middleware.RequireServiceKey(h.cfg.ServiceKeyHash)
	router.With(serviceKey).Post("/purchases/confirm", h.ConfirmPurchase)
	router.Route("/admin", func(r chi.Router) {
		r.Use(serviceKey)
		r.Post("/adjust", h.Adjust)
		r.Post("/bonus", h.GrantBonus)
		r.Post("/daily-reset", h.RunDailyReset)
	})
	return router
}
