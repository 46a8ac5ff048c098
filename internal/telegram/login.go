// Package telegram verifies Telegram Login Widget payloads and relays images
// to chats through the Bot API.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Login verification errors.
var (
	// ErrBadSignature indicates the payload hash does not match the bot token.
	ErrBadSignature = errors.New("telegram: login payload signature mismatch")
	// ErrStalePayload indicates the payload auth_date is outside the freshness window.
	ErrStalePayload = errors.New("telegram: login payload expired")
)

// LoginPayload carries the fields the Login Widget posts back.
type LoginPayload struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
	AuthDate  int64  `json:"auth_date"`
	Hash      string `json:"hash"`
}

// VerifyLogin checks the widget payload signature and freshness.
//
// The signature is HMAC-SHA256 over the sorted key=value data-check-string,
// keyed by SHA256 of the bot token, per the Login Widget contract.
func VerifyLogin(payload LoginPayload, botToken string, maxAge time.Duration, now time.Time) error {
	if payload.ID == 0 || strings.TrimSpace(payload.Hash) == "" {
		return ErrBadSignature
	}
	if strings.TrimSpace(botToken) == "" {
		return fmt.Errorf("telegram: bot token not configured")
	}

	fields := map[string]string{
		"id":        fmt.Sprintf("%d", payload.ID),
		"auth_date": fmt.Sprintf("%d", payload.AuthDate),
	}
	if payload.FirstName != "" {
		fields["first_name"] = payload.FirstName
	}
	if payload.LastName != "" {
		fields["last_name"] = payload.LastName
	}
	if payload.Username != "" {
		fields["username"] = payload.Username
	}
	if payload.PhotoURL != "" {
		fields["photo_url"] = payload.PhotoURL
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+fields[key])
	}
	checkString := strings.Join(pairs, "\n")

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(payload.Hash))) != 1 {
		return ErrBadSignature
	}

	if maxAge > 0 {
		authTime := time.Unix(payload.AuthDate, 0)
		if now.Sub(authTime) > maxAge {
			return ErrStalePayload
		}
	}
	return nil
}

// SignLogin computes the widget hash for a payload. Intended for tests.
func SignLogin(payload LoginPayload, botToken string) string {
	fields := map[string]string{
		"id":        fmt.Sprintf("%d", payload.ID),
		"auth_date": fmt.Sprintf("%d", payload.AuthDate),
	}
	if payload.FirstName != "" {
		fields["first_name"] = payload.FirstName
	}
	if payload.LastName != "" {
		fields["last_name"] = payload.LastName
	}
	if payload.Username != "" {
		fields["username"] = payload.Username
	}
	if payload.PhotoURL != "" {
		fields["photo_url"] = payload.PhotoURL
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+fields[key])
	}

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
