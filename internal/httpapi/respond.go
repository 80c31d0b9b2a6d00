package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"time-tracker/internal/service"
)

const (
	flashCookie = "flash"

	severitySuccess     = "success"
	severityDestructive = "destructive"

	msgUnexpected = "An unexpected error occurred"
)

type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Flash is a one-shot notification shown on the next rendered page.
type Flash struct {
	Message string              `json:"message"`
	Type    string              `json:"type"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") || hasJSONBody(r)
}

func hasJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[warn] encode response: %v", err)
	}
}

// respondOK answers API callers with a message body and browsers with a
// redirect carrying a success flash.
func (s *Server) respondOK(w http.ResponseWriter, r *http.Request, status int, target, message string, body map[string]interface{}) {
	if wantsJSON(r) {
		if body == nil {
			body = map[string]interface{}{}
		}
		if message != "" {
			body["message"] = message
		}
		writeJSON(w, status, body)
		return
	}
	if message != "" {
		s.setFlash(w, Flash{Message: message, Type: severitySuccess})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// fail maps service errors onto HTTP responses. Internal detail never reaches
// the client. Browsers are redirected to target with a flash, or get a plain
// error page when there is no page to go back to.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, target, forbidden string) {
	var verr *service.ValidationError
	status := http.StatusInternalServerError
	body := errorBody{Message: msgUnexpected}

	switch {
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
		body = errorBody{Message: verr.Fields[0].Message, Errors: verr.ByField()}
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
		body.Message = forbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
		body.Message = "Not found"
	case errors.Is(err, service.ErrEmailTaken):
		status = http.StatusUnprocessableEntity
		body = errorBody{
			Message: "The email has already been taken.",
			Errors:  map[string][]string{"email": {"The email has already been taken."}},
		}
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		body.Message = "These credentials do not match our records."
	case errors.Is(err, service.ErrWriteFailed):
		// already logged with operation context
	default:
		log.Printf("[error] %s %s req=%s: %v", r.Method, r.URL.Path, requestIDFrom(r.Context()), err)
	}

	if wantsJSON(r) {
		writeJSON(w, status, body)
		return
	}
	if target == "" {
		http.Error(w, body.Message, status)
		return
	}
	s.setFlash(w, Flash{Message: body.Message, Type: severityDestructive, Errors: body.Errors})
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) setFlash(w http.ResponseWriter, f Flash) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears the pending flash, if any.
func (s *Server) takeFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})
	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	return &f
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("[error] render %s: %v", name, err)
	}
}
