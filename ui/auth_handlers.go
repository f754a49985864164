package ui

import (
	"log"
	"net/http"
	"strings"
)

type authPageData struct {
	Error    string
	Notice   string
	Username string
	Email    string
}

func (a *App) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if a.sessions.Active() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	data := authPageData{}
	if r.URL.Query().Get("registered") == "1" {
		data.Notice = "Registration successful. Please log in."
	}
	a.renderTemplate(w, "login.html", data)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		a.renderTemplate(w, "login.html", authPageData{
			Error:    "Username and password are required",
			Username: username,
		})
		return
	}

	if _, err := a.sessions.Login(r.Context(), username, password); err != nil {
		log.Printf("[UI] Login failed for %s: %v", username, err)
		a.renderTemplate(w, "login.html", authPageData{
			Error:    err.Error(),
			Username: username,
		})
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	a.renderTemplate(w, "register.html", authPageData{})
}

func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if username == "" || email == "" || password == "" {
		a.renderTemplate(w, "register.html", authPageData{
			Error:    "All fields are required",
			Username: username,
			Email:    email,
		})
		return
	}

	if err := a.sessions.Register(r.Context(), username, email, password); err != nil {
		log.Printf("[UI] Registration failed for %s: %v", username, err)
		a.renderTemplate(w, "register.html", authPageData{
			Error:    err.Error(),
			Username: username,
			Email:    email,
		})
		return
	}

	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.sessions.Logout()
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
