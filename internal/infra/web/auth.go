package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"trading-journal/internal/infra/logging"
)

// authMiddleware validates the Bearer token (HS256) and stores the account
// id from the `sub` claim on the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeError(w, http.StatusUnauthorized, "malformed authorization header")
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(s.jwtSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			writeError(w, http.StatusUnauthorized, "token missing subject")
			return
		}

		ctx := logging.WithAccountID(r.Context(), sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAccess is the paid-feature gate. Accounts without an entitlement
// (expired trial, lapsed subscription) get 402 so clients can route to the
// billing page.
func (s *Server) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, found := logging.AccountIDFromContext(r.Context())
		if !found {
			writeError(w, http.StatusUnauthorized, "missing account")
			return
		}
		ok, err := s.entitlement.HasAccess(r.Context(), accountID)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		if !ok {
			writeError(w, http.StatusPaymentRequired, "subscription required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
