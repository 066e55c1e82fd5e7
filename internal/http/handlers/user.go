package handlers

import (
	"net/http"
	"time"
)

// Me returns the authenticated user's profile with the current quota view.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, a.userDTO(user, time.Now()))
}
