package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/rjweb/internal/store"
	"github.com/dukerupert/rjweb/internal/upload"
	"github.com/dukerupert/rjweb/internal/websocket"
)

const (
	dashboardPath = "/admin"
	blogAdminPath = "/admin/manage-blog"
)

type AdminHandler struct {
	content  *store.ContentStore
	posts    *store.PostStore
	messages *store.MessageStore
	uploader *upload.Uploader
	hub      Broadcaster
	rd       *Renderer
	logger   *slog.Logger
}

func NewAdminHandler(
	cs *store.ContentStore,
	ps *store.PostStore,
	ms *store.MessageStore,
	uploader *upload.Uploader,
	hub Broadcaster,
	rd *Renderer,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		content:  cs,
		posts:    ps,
		messages: ms,
		uploader: uploader,
		hub:      hub,
		rd:       rd,
		logger:   logger,
	}
}

func (h *AdminHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

// parseUploadForm parses a possibly multipart form. On failure it has
// already responded and returns false.
func (h *AdminHandler) parseUploadForm(w http.ResponseWriter, r *http.Request, back string) bool {
	err := h.uploader.ParseForm(w, r)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.rd.redirect(w, r, back, flashError, "Upload too large (max 8 MB).")
		return false
	}
	h.logger.Warn("parse admin form", "path", r.URL.Path, "error", err)
	h.rd.redirect(w, r, back, flashError, "Could not read the submitted form.")
	return false
}

// saveImage stores the file in field, if any, and returns its URL. On
// failure it has already responded and returns false.
func (h *AdminHandler) saveImage(w http.ResponseWriter, r *http.Request, field, back string) (string, bool) {
	url, err := h.uploader.SaveFormFile(r.Context(), r, field)
	if errors.Is(err, upload.ErrDisallowedType) {
		h.rd.redirect(w, r, back, flashError, "Only PNG, JPG, GIF and WEBP images are allowed.")
		return "", false
	}
	if err != nil {
		h.rd.serverError(w, "save upload", err)
		return "", false
	}
	return url, true
}

func (h *AdminHandler) unreadEvent(r *http.Request, typ string, id int64) websocket.Event {
	ev := websocket.Event{Type: typ, ID: id}
	if counts, err := h.messages.Counts(r.Context()); err == nil {
		ev.Unread = &counts.Unread
	}
	return ev
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messages.List(r.Context())
	if err != nil {
		h.rd.serverError(w, "list messages", err)
		return
	}
	counts, err := h.messages.Counts(r.Context())
	if err != nil {
		h.rd.serverError(w, "count messages", err)
		return
	}
	h.rd.render(w, r, "admin_dashboard.html", map[string]any{
		"Messages": messages,
		"Counts":   counts,
	})
}

func (h *AdminHandler) EditHomePage(w http.ResponseWriter, r *http.Request) {
	content, err := h.content.GetMany(r.Context(), store.HomeKeys...)
	if err != nil {
		h.rd.serverError(w, "load home content", err)
		return
	}
	h.rd.render(w, r, "admin_edit_home.html", map[string]any{"Content": content})
}

func (h *AdminHandler) EditHome(w http.ResponseWriter, r *http.Request) {
	const back = "/admin/edit-home"
	if !h.parseUploadForm(w, r, back) {
		return
	}

	values := map[string]string{
		"home_title":    r.FormValue("title"),
		"home_subtitle": r.FormValue("subtitle"),
		"home_value":    r.FormValue("value"),
	}
	url, ok := h.saveImage(w, r, "home_image", back)
	if !ok {
		return
	}
	if url != "" {
		values["home_image"] = url
	}

	if err := h.content.SetMany(r.Context(), values); err != nil {
		h.rd.serverError(w, "save home content", err)
		return
	}
	h.rd.redirect(w, r, dashboardPath, flashSuccess, "Homepage updated!")
}

func (h *AdminHandler) EditAboutPage(w http.ResponseWriter, r *http.Request) {
	content, err := h.content.GetMany(r.Context(), store.AboutKeys...)
	if err != nil {
		h.rd.serverError(w, "load about content", err)
		return
	}
	h.rd.render(w, r, "admin_edit_about.html", map[string]any{"Content": content})
}

func (h *AdminHandler) EditAbout(w http.ResponseWriter, r *http.Request) {
	values := map[string]string{
		"about_story": r.FormValue("story"),
		"about_team":  r.FormValue("team"),
	}
	if err := h.content.SetMany(r.Context(), values); err != nil {
		h.rd.serverError(w, "save about content", err)
		return
	}
	h.rd.redirect(w, r, dashboardPath, flashSuccess, "About page updated!")
}

func (h *AdminHandler) EditServicesPage(w http.ResponseWriter, r *http.Request) {
	content, err := h.content.GetMany(r.Context(), store.ServiceKeys()...)
	if err != nil {
		h.rd.serverError(w, "load services content", err)
		return
	}
	h.rd.render(w, r, "admin_edit_services.html", map[string]any{"Services": serviceViews(content)})
}

func (h *AdminHandler) EditServices(w http.ResponseWriter, r *http.Request) {
	const back = "/admin/edit-services"
	if !h.parseUploadForm(w, r, back) {
		return
	}

	values := make(map[string]string)
	for i := 1; i <= store.ServiceCount; i++ {
		prefix := "s" + strconv.Itoa(i) + "_"
		values[store.ServiceKey(i, "title")] = r.FormValue(prefix + "title")
		values[store.ServiceKey(i, "desc")] = r.FormValue(prefix + "desc")
		values[store.ServiceKey(i, "price")] = r.FormValue(prefix + "price")

		url, ok := h.saveImage(w, r, prefix+"image", back)
		if !ok {
			return
		}
		if url != "" {
			values[store.ServiceKey(i, "image")] = url
		}
	}

	if err := h.content.SetMany(r.Context(), values); err != nil {
		h.rd.serverError(w, "save services content", err)
		return
	}
	h.rd.redirect(w, r, dashboardPath, flashSuccess, "Services updated!")
}

func (h *AdminHandler) ManageBlogPage(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		h.rd.serverError(w, "list posts", err)
		return
	}
	h.rd.render(w, r, "admin_manage_blog.html", map[string]any{"Posts": posts})
}

// ManageBlog creates a post, or deletes one when the form carries "delete".
func (h *AdminHandler) ManageBlog(w http.ResponseWriter, r *http.Request) {
	if !h.parseUploadForm(w, r, blogAdminPath) {
		return
	}

	if raw := r.FormValue("delete"); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			h.rd.redirect(w, r, blogAdminPath, flashError, "Post not found.")
			return
		}
		if err := h.posts.Delete(r.Context(), id); err != nil {
			h.rd.serverError(w, "delete post", err)
			return
		}
		h.broadcast(websocket.Event{Type: websocket.EventPostDeleted, ID: id})
		h.rd.redirect(w, r, blogAdminPath, flashSuccess, "Post deleted!")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	content := strings.TrimSpace(r.FormValue("content"))
	if title == "" || content == "" {
		h.rd.redirect(w, r, blogAdminPath, flashError, "Title and content are required.")
		return
	}

	url, ok := h.saveImage(w, r, "image", blogAdminPath)
	if !ok {
		return
	}
	var image *string
	if url != "" {
		image = &url
	}

	post, err := h.posts.Create(r.Context(), title, content, time.Now().Format(store.PostDateLayout), image)
	if err != nil {
		h.rd.serverError(w, "create post", err)
		return
	}
	h.broadcast(websocket.Event{Type: websocket.EventPostCreated, ID: post.ID, Title: post.Title})
	h.rd.redirect(w, r, blogAdminPath, flashSuccess, "New post published!")
}

func (h *AdminHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		h.rd.redirect(w, r, dashboardPath, flashError, "Message not found.")
		return
	}
	if err := h.messages.MarkRead(r.Context(), id); err != nil {
		h.rd.serverError(w, "mark message read", err)
		return
	}
	h.broadcast(h.unreadEvent(r, websocket.EventMessageRead, id))
	h.rd.redirect(w, r, dashboardPath, flashSuccess, "Message marked as read")
}

func (h *AdminHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		h.rd.redirect(w, r, dashboardPath, flashError, "Message not found.")
		return
	}
	if err := h.messages.Delete(r.Context(), id); err != nil {
		h.rd.serverError(w, "delete message", err)
		return
	}
	h.broadcast(h.unreadEvent(r, websocket.EventMessageDeleted, id))
	h.rd.redirect(w, r, dashboardPath, flashSuccess, "Message deleted")
}
