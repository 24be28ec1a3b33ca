package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookieName = "rjweb_flash"

const (
	flashSuccess = "success"
	flashError   = "error"
	flashWarning = "warning"
	flashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// flash queues a message for the next render, keeping any not yet shown.
func (rd *Renderer) flash(w http.ResponseWriter, r *http.Request, category, message string) {
	flashes := append(readFlashes(r), Flash{Category: category, Message: message})
	data, err := json.Marshal(flashes)
	if err != nil {
		rd.logger.Error("marshal flash", "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   rd.secure(r),
	})
}

// popFlashes returns pending messages and clears the cookie.
func (rd *Renderer) popFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	flashes := readFlashes(r)
	if _, err := r.Cookie(flashCookieName); err == nil {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
	return flashes
}

func readFlashes(r *http.Request) []Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(data, &flashes); err != nil {
		return nil
	}
	return flashes
}
