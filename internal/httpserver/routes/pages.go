package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/taust/internal/httpserver/deps"
	"github.com/MrSnakeDoc/taust/internal/httpserver/handlers"
)

func init() { Register(registerPages) }

func registerPages(r chi.Router, d deps.Deps) {
	a := r.With(admin(d)...)
	a.Get("/pages", handlers.ListPages(d))
	a.Post("/pages", handlers.CreatePage(d))
	a.Get("/pages/{id}", handlers.GetPage(d))
	a.Put("/pages/{id}", handlers.UpdatePage(d))
	a.Delete("/pages/{id}", handlers.DeletePage(d))
	a.Post("/pages/{id}/announcements", handlers.CreateAnnouncement(d))

	// Read views shown to visitors
	r.Get("/pages/{id}/status", handlers.PageStatus(d))
	r.Get("/pages/{id}/history", handlers.PageHistory(d))
	r.Get("/pages/{id}/feed", handlers.PageFeed(d))
	r.Get("/pages/{id}/style.css", handlers.PageStyle(d))
	r.Get("/pages/{id}/announcements", handlers.ListAnnouncements(d))
	r.Get("/", handlers.PublicStatus(d))
}
