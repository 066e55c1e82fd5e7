package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Authentication checks for the two Telegram entry points: the Login
// Widget (hash over sorted fields, secret = SHA256(bot token)) and the
// Mini-App initData (hash over sorted query pairs, secret =
// HMAC("WebAppData", bot token)).

// WidgetPayload is the Login Widget callback body.
type WidgetPayload struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
	AuthDate  int64  `json:"auth_date"`
	Hash      string `json:"hash"`
}

// WebAppUser is the user object embedded in Mini-App initData.
type WebAppUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
}

// VerifyWidgetAuth checks the Login Widget signature.
func VerifyWidgetAuth(botToken string, p WidgetPayload) bool {
	if botToken == "" || p.Hash == "" {
		return false
	}
	fields := map[string]string{
		"id":        fmt.Sprintf("%d", p.ID),
		"auth_date": fmt.Sprintf("%d", p.AuthDate),
	}
	if p.FirstName != "" {
		fields["first_name"] = p.FirstName
	}
	if p.LastName != "" {
		fields["last_name"] = p.LastName
	}
	if p.Username != "" {
		fields["username"] = p.Username
	}
	if p.PhotoURL != "" {
		fields["photo_url"] = p.PhotoURL
	}
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
	return hmacHex(secret[:], strings.Join(pairs, "\n")) == p.Hash
}

// VerifyInitData checks a Mini-App initData string.
func VerifyInitData(botToken, initData string) bool {
	if botToken == "" {
		return false
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return false
	}
	hash := values.Get("hash")
	if hash == "" {
		return false
	}
	values.Del("hash")

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
	mac.Write([]byte(botToken))
	secret := mac.Sum(nil)
	expected := hmacHex(secret, strings.Join(pairs, "\n"))
	return hmac.Equal([]byte(expected), []byte(hash))
}

// ParseInitDataUser extracts the user object from initData. Call only
// after VerifyInitData passed.
func ParseInitDataUser(initData string) (*WebAppUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, err
	}
	raw := values.Get("user")
	if raw == "" {
		return nil, errors.New("initData has no user field")
	}
	var u WebAppUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("parse initData user: %w", err)
	}
	if u.ID == 0 {
		return nil, errors.New("initData user has no id")
	}
	return &u, nil
}

func hmacHex(key []byte, data string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
