package telegram

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
)

const testBotToken = "110201543:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"

func signWidget(token string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}
	secret := sha256.Sum256([]byte(token))
	return hmacHex(secret[:], strings.Join(pairs, "\n"))
}

func TestVerifyWidgetAuth(t *testing.T) {
	payload := WidgetPayload{
		ID:        42,
		FirstName: "Alice",
		Username:  "alice",
		AuthDate:  1700000000,
	}
	payload.Hash = signWidget(testBotToken, map[string]string{
		"id":         "42",
		"first_name": "Alice",
		"username":   "alice",
		"auth_date":  "1700000000",
	})
	if !VerifyWidgetAuth(testBotToken, payload) {
		t.Fatalf("VerifyWidgetAuth() = false for valid payload")
	}
	payload.Username = "mallory"
	if VerifyWidgetAuth(testBotToken, payload) {
		t.Fatalf("VerifyWidgetAuth() = true for tampered payload")
	}
}

func TestVerifyWidgetAuthRejectsEmptyHash(t *testing.T) {
	if VerifyWidgetAuth(testBotToken, WidgetPayload{ID: 1, AuthDate: 1}) {
		t.Fatalf("VerifyWidgetAuth() = true for payload without hash")
	}
}

func signInitData(token string, values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(token))
	return hmacHex(mac.Sum(nil), strings.Join(pairs, "\n"))
}

func buildInitData(t *testing.T, token string) string {
	t.Helper()
	values := url.Values{}
	values.Set("user", `{"id":42,"first_name":"Alice","username":"alice"}`)
	values.Set("auth_date", "1700000000")
	values.Set("query_id", "AAE42")
	hash := signInitData(token, values)
	values.Set("hash", hash)
	return values.Encode()
}

func TestVerifyInitData(t *testing.T) {
	initData := buildInitData(t, testBotToken)
	if !VerifyInitData(testBotToken, initData) {
		t.Fatalf("VerifyInitData() = false for valid initData")
	}
	if VerifyInitData("other-token", initData) {
		t.Fatalf("VerifyInitData() = true under a different bot token")
	}
	if VerifyInitData(testBotToken, initData+"&extra=1") {
		t.Fatalf("VerifyInitData() = true for tampered initData")
	}
}

func TestParseInitDataUser(t *testing.T) {
	initData := buildInitData(t, testBotToken)
	u, err := ParseInitDataUser(initData)
	if err != nil {
		t.Fatalf("ParseInitDataUser() unexpected error: %v", err)
	}
	if u.ID != 42 || u.Username != "alice" {
		t.Fatalf("ParseInitDataUser() = %+v, want id 42 username alice", u)
	}

	if _, err := ParseInitDataUser("auth_date=1"); err == nil {
		t.Fatalf("ParseInitDataUser() expected error without user field")
	}
}

func TestAnswerPreCheckoutQuery(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := jsonDecode(r, &gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewBotClient("123:abc", srv.URL)
	if err := client.AnswerPreCheckoutQuery(context.Background(), "q1", true, ""); err != nil {
		t.Fatalf("AnswerPreCheckoutQuery() unexpected error: %v", err)
	}
	if gotPath != "/bot123:abc/answerPreCheckoutQuery" {
		t.Fatalf("request path = %q", gotPath)
	}
	if gotBody["pre_checkout_query_id"] != "q1" || gotBody["ok"] != true {
		t.Fatalf("request body = %v", gotBody)
	}
}

func TestAnswerPreCheckoutQueryBotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"description":"QUERY_ID_INVALID"}`))
	}))
	defer srv.Close()

	client := NewBotClient("123:abc", srv.URL)
	err := client.AnswerPreCheckoutQuery(context.Background(), "stale", false, "expired")
	if err == nil || !strings.Contains(err.Error(), "QUERY_ID_INVALID") {
		t.Fatalf("AnswerPreCheckoutQuery() error = %v, want bot api description", err)
	}
}

func jsonDecode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
