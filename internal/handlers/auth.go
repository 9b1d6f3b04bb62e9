package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthHandler exchanges the shared API token for a JWT naming the actor.
// Real identity lives in the host application; the audit API only needs a
// display label for the principal behind each write.
type AuthHandler struct {
	APIToken    string
	Secret      []byte
	ExpireHours int
}

// Login verifies the API token and issues a JWT whose "actor" claim carries
// the caller's display label.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Actor    string `json:"actor"`
		APIToken string `json:"api_token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid json", http.StatusBadRequest)
		return
	}

	if input.Actor == "" {
		JSONError(w, "actor is required", http.StatusBadRequest)
		return
	}
	if input.APIToken != h.APIToken {
		JSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	expire := h.ExpireHours
	if expire <= 0 {
		expire = 24
	}
	claims := jwt.MapClaims{
		"actor": input.Actor,
		"exp":   time.Now().Add(time.Duration(expire) * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.Secret)
	if err != nil {
		JSONError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"token": signed,
		"actor": input.Actor,
	})
}
