package integration

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// forgeToken signs access-token claims for the user with the given key.
func (s *StepsContext) forgeToken(email string, key []byte, issuedAt, expiresAt time.Time) (string, error) {
	var userID int64
	if err := s.tc.RawDB.QueryRow(`SELECT id FROM users WHERE email = $1`, strings.ToLower(email)).Scan(&userID); err != nil {
		return "", fmt.Errorf("user %s: %w", email, err)
	}

	claims := jwt.RegisteredClaims{
		Issuer:    "saasgate",
		Subject:   strconv.FormatInt(userID, 10),
		Audience:  jwt.ClaimStrings{"saasgate:auth"},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

func (s *StepsContext) iUseAnExpiredToken(email string, minutes int) error {
	expiredAt := time.Now().Add(-time.Duration(minutes) * time.Minute)
	token, err := s.forgeToken(email, []byte(s.tc.SecretKey), expiredAt.Add(-time.Hour), expiredAt)
	if err != nil {
		return err
	}
	s.authToken = token
	return nil
}

func (s *StepsContext) iUseAForeignToken(email string) error {
	now := time.Now()
	token, err := s.forgeToken(email, []byte("not-the-server-secret"), now, now.Add(time.Hour))
	if err != nil {
		return err
	}
	s.authToken = token
	return nil
}
