package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"chatmatch/internal/domain"
	"chatmatch/internal/middleware"
	"chatmatch/internal/telegram"
)

// authDateMaxAge bounds how old a Telegram auth payload may be before it
// is rejected as a replay.
const authDateMaxAge = 24 * time.Hour

type authResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

// AuthTelegram handles the Login Widget callback: it verifies the widget
// hash, upserts the user and issues an access token.
func (a *App) AuthTelegram(w http.ResponseWriter, r *http.Request) {
	var payload telegram.WidgetPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if payload.ID == 0 || payload.Hash == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id and hash required")
		return
	}
	if !telegram.VerifyWidgetAuth(a.Cfg.TelegramBotToken, payload) {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid telegram hash")
		return
	}
	if stale(payload.AuthDate) {
		a.error(w, http.StatusUnauthorized, "unauthorized", "auth data expired")
		return
	}
	a.finishAuth(w, r, &domain.User{
		TelegramID: strconv.FormatInt(payload.ID, 10),
		Username:   payload.Username,
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		PhotoURL:   payload.PhotoURL,
	})
}

type webAppAuthRequest struct {
	InitData string `json:"init_data"`
}

// AuthWebApp handles Mini-App logins: it verifies the initData signature,
// extracts the embedded user and issues an access token.
func (a *App) AuthWebApp(w http.ResponseWriter, r *http.Request) {
	var req webAppAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.InitData == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "init_data required")
		return
	}
	if !telegram.VerifyInitData(a.Cfg.TelegramBotToken, req.InitData) {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid init data")
		return
	}
	if stale(initDataAuthDate(req.InitData)) {
		a.error(w, http.StatusUnauthorized, "unauthorized", "auth data expired")
		return
	}
	tgUser, err := telegram.ParseInitDataUser(req.InitData)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "init_data has no valid user")
		return
	}
	a.finishAuth(w, r, &domain.User{
		TelegramID: strconv.FormatInt(tgUser.ID, 10),
		Username:   tgUser.Username,
		FirstName:  tgUser.FirstName,
		LastName:   tgUser.LastName,
		PhotoURL:   tgUser.PhotoURL,
	})
}

func (a *App) finishAuth(w http.ResponseWriter, r *http.Request, u *domain.User) {
	user, err := a.Users.UpsertByTelegramID(r.Context(), u)
	if err != nil {
		a.Logger.Error().Err(err).Str("telegram_id", u.TelegramID).Msg("upsert user failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist user")
		return
	}
	token, err := middleware.SignJWT(a.Cfg.JWTSecret, user.ID, user.TelegramID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}
	a.json(w, http.StatusOK, authResponse{Token: token, User: a.userDTO(user, time.Now())})
}

func stale(authDate int64) bool {
	if authDate == 0 {
		return true
	}
	return time.Since(time.Unix(authDate, 0)) > authDateMaxAge
}

func initDataAuthDate(initData string) int64 {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return 0
	}
	ts, _ := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	return ts
}
