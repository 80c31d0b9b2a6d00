package httpapi

import (
	"encoding/json"
	"net/http"

	"time-tracker/internal/service"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type authPage struct {
	Flash *Flash
	Email string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "login.html", authPage{Flash: s.takeFlash(w, r)})
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "register.html", authPage{Flash: s.takeFlash(w, r)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r, "/login")
	if !ok {
		return
	}
	user, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err, "/login", "")
		return
	}
	s.startSession(w, r, user.ID, http.StatusOK)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r, "/register")
	if !ok {
		return
	}
	user, err := s.users.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		s.fail(w, r, err, "/register", "")
		return
	}
	s.startSession(w, r, user.ID, http.StatusCreated)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.cookieSecure})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, userID uint, status int) {
	token, err := s.issuer.Issue(userID)
	if err != nil {
		s.fail(w, r, err, "/login", "")
		return
	}
	if wantsJSON(r) {
		writeJSON(w, status, map[string]string{"token": token})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.issuer.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/time-entries", http.StatusSeeOther)
}

func (s *Server) decodeCredentials(w http.ResponseWriter, r *http.Request, back string) (credentialsRequest, bool) {
	var req credentialsRequest
	if hasJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Message: "Invalid request"})
			return req, false
		}
		return req, true
	}
	if err := r.ParseForm(); err != nil {
		s.setFlash(w, Flash{Message: "Invalid request", Type: severityDestructive})
		http.Redirect(w, r, back, http.StatusSeeOther)
		return req, false
	}
	req.Email = r.PostForm.Get("email")
	req.Name = r.PostForm.Get("name")
	req.Password = r.PostForm.Get("password")
	return req, true
}
