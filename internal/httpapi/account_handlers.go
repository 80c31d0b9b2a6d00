package httpapi

import (
	"net/http"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.List(r.Context())
	if err != nil {
		s.fail(w, r, err, entriesPath, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

// handleTelegramLink issues a code the user sends to the bot as /start <code>.
func (s *Server) handleTelegramLink(w http.ResponseWriter, r *http.Request) {
	code, err := s.users.IssueLinkCode(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err, entriesPath, "")
		return
	}
	command := "/start " + code
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"code": code, "command": command})
		return
	}
	s.setFlash(w, Flash{Message: "Send " + command + " to the Telegram bot to link this account", Type: severitySuccess})
	http.Redirect(w, r, entriesPath, http.StatusSeeOther)
}
