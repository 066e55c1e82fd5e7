package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"chatmatch/internal/middleware"
	"chatmatch/internal/telegram"
)

func widgetHash(botToken string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}
	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestAuthTelegramIssuesToken(t *testing.T) {
	users := newFakeUserRepo()
	app := testApp(users, &fakeGenRepo{}, newFakePaymentRepo())

	authDate := time.Now().Unix()
	payload := telegram.WidgetPayload{
		ID:        777,
		FirstName: "Анна",
		Username:  "anna",
		AuthDate:  authDate,
	}
	payload.Hash = widgetHash(app.Cfg.TelegramBotToken, map[string]string{
		"id":         "777",
		"first_name": "Анна",
		"username":   "anna",
		"auth_date":  fmt.Sprintf("%d", authDate),
	})

	body, _ := json.Marshal(payload)
	rec := httptest.NewRecorder()
	app.AuthTelegram(rec, httptest.NewRequest(http.MethodPost, "/api/auth/telegram", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("response has no token")
	}
	claims, err := middleware.VerifyJWT(app.Cfg.JWTSecret, resp.Token)
	if err != nil {
		t.Fatalf("VerifyJWT() unexpected error: %v", err)
	}
	if claims.TelegramID != "777" {
		t.Fatalf("claims.TelegramID = %q, want 777", claims.TelegramID)
	}
	if resp.User.Usage.Limit != 5 {
		t.Fatalf("new user limit = %d, want 5", resp.User.Usage.Limit)
	}
}

func TestAuthTelegramRejectsBadHash(t *testing.T) {
	app := testApp(newFakeUserRepo(), &fakeGenRepo{}, newFakePaymentRepo())
	payload := telegram.WidgetPayload{ID: 777, AuthDate: time.Now().Unix(), Hash: "deadbeef"}
	body, _ := json.Marshal(payload)
	rec := httptest.NewRecorder()
	app.AuthTelegram(rec, httptest.NewRequest(http.MethodPost, "/api/auth/telegram", bytes.NewReader(body)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthTelegramRejectsStaleAuthDate(t *testing.T) {
	app := testApp(newFakeUserRepo(), &fakeGenRepo{}, newFakePaymentRepo())

	authDate := time.Now().Add(-25 * time.Hour).Unix()
	payload := telegram.WidgetPayload{ID: 777, AuthDate: authDate}
	payload.Hash = widgetHash(app.Cfg.TelegramBotToken, map[string]string{
		"id":        "777",
		"auth_date": fmt.Sprintf("%d", authDate),
	})
	body, _ := json.Marshal(payload)
	rec := httptest.NewRecorder()
	app.AuthTelegram(rec, httptest.NewRequest(http.MethodPost, "/api/auth/telegram", bytes.NewReader(body)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
