package http

import (
	"net/http"
	"strconv"

	"rently/internal/notify"
	"rently/internal/session"
)

// PreferenceCookie keeps the notification toggle on the device.
const PreferenceCookie = "rently_notif"

const preferenceMaxAge = 365 * 24 * 60 * 60

type preferencesJSON struct {
	Notifications bool `json:"notifications"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, _ := sess.Identity()
	NewJSONResponse().Data(map[string]string{
		"mail": notify.FeedbackMail(s.opts.FeedbackEmail, id.Email),
	}).Write(w)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	var p preferencesJSON
	if c, err := r.Cookie(PreferenceCookie); err == nil {
		p.Notifications, _ = strconv.ParseBool(c.Value)
	}
	NewJSONResponse().Data(p).Write(w)
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	var p preferencesJSON
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, "preferences", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     PreferenceCookie,
		Value:    strconv.FormatBool(p.Notifications),
		Path:     "/",
		MaxAge:   preferenceMaxAge,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	NewJSONResponse().Data(p).Write(w)
}
