// Package auth implements API-key issuance and verification. An access token
// is an opaque base64 envelope carrying the token row id and the plaintext
// key; only the bcrypt hash of the key is stored.
package auth

import (
	"encoding/base64"
	"encoding/json"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/merklebot/storage/internal/common"
)

type accessTokenPayload struct {
	ID  int64  `json:"id"`
	Val string `json:"val"`
}

// CreateAPIKey returns a fresh random API key.
func CreateAPIKey() string {
	return uuid.NewString() + uuid.NewString()
}

// HashAPIKey returns the bcrypt hash to persist for the key.
func HashAPIKey(apiKey string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAPIKey reports whether apiKey matches the stored hash.
func VerifyAPIKey(apiKey, hashedAPIKey string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedAPIKey), []byte(apiKey)) == nil
}

// EncodeAccessToken packs the token id and plaintext key into the opaque
// access token handed to the client.
func EncodeAccessToken(tokenID int64, apiKey string) string {
	payload, _ := json.Marshal(accessTokenPayload{ID: tokenID, Val: apiKey})
	return base64.URLEncoding.EncodeToString(payload)
}

// DecodeAccessToken unpacks an access token back into token id and key.
func DecodeAccessToken(token string) (int64, string, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return 0, "", common.ErrInvalidToken
	}
	var payload accessTokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, "", common.ErrInvalidToken
	}
	return payload.ID, payload.Val, nil
}
