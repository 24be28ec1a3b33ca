package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/rjweb/internal/middleware"
	"github.com/dukerupert/rjweb/internal/store"
	"github.com/dukerupert/rjweb/internal/websocket"
)

type PublicHandler struct {
	content  *store.ContentStore
	posts    *store.PostStore
	messages *store.MessageStore
	hub      Broadcaster
	rd       *Renderer
	logger   *slog.Logger
}

func NewPublicHandler(cs *store.ContentStore, ps *store.PostStore, ms *store.MessageStore, hub Broadcaster, rd *Renderer, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{
		content:  cs,
		posts:    ps,
		messages: ms,
		hub:      hub,
		rd:       rd,
		logger:   logger,
	}
}

func (h *PublicHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	content, err := h.content.GetMany(r.Context(), store.HomeKeys...)
	if err != nil {
		h.rd.serverError(w, "load home content", err)
		return
	}
	h.rd.render(w, r, "home.html", map[string]any{"Content": content})
}

func (h *PublicHandler) About(w http.ResponseWriter, r *http.Request) {
	content, err := h.content.GetMany(r.Context(), store.AboutKeys...)
	if err != nil {
		h.rd.serverError(w, "load about content", err)
		return
	}
	h.rd.render(w, r, "about.html", map[string]any{"Content": content})
}

func (h *PublicHandler) Services(w http.ResponseWriter, r *http.Request) {
	content, err := h.content.GetMany(r.Context(), store.ServiceKeys()...)
	if err != nil {
		h.rd.serverError(w, "load services content", err)
		return
	}
	h.rd.render(w, r, "services.html", map[string]any{"Services": serviceViews(content)})
}

func (h *PublicHandler) Blog(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		h.rd.serverError(w, "list posts", err)
		return
	}
	h.rd.render(w, r, "blog.html", map[string]any{"Posts": posts})
}

func (h *PublicHandler) ContactPage(w http.ResponseWriter, r *http.Request) {
	h.rd.render(w, r, "contact.html", nil)
}

func (h *PublicHandler) Contact(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	message := strings.TrimSpace(r.FormValue("message"))
	if name == "" || email == "" || message == "" {
		h.rd.redirect(w, r, "/contact", flashError, "Please fill in all fields.")
		return
	}

	msg, err := h.messages.Create(r.Context(), name, email, message)
	if err != nil {
		h.rd.serverError(w, "create contact message", err)
		return
	}
	h.logger.Info("contact message received", "id", msg.ID, "ip", middleware.RealIP(r))

	ev := websocket.Event{Type: websocket.EventMessageCreated, ID: msg.ID, Title: msg.Name}
	if counts, err := h.messages.Counts(r.Context()); err == nil {
		ev.Unread = &counts.Unread
	}
	h.broadcast(ev)

	h.rd.redirect(w, r, "/contact", flashSuccess, "Thank you! Your message has been sent. We'll reply soon.")
}
