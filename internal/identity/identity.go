// Package identity turns an opaque session token into the recipient id that
// notification lists are keyed by.
//
// The contract: an empty token is the anonymous recipient. A non-empty token
// must verify (Firebase ID token when configured, HS256 session JWT otherwise)
// and yield a recipient id matching ValidRecipient. Anything else is rejected;
// tokens are never sliced or guessed at.
package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"notification_hub/internal/config"
	"notification_hub/internal/firebase"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
)

// Anonymous is the recipient for callers without a session.
const Anonymous = "anonymous"

var (
	ErrInvalidToken   = errors.New("invalid session token")
	ErrNoVerifier     = errors.New("session tokens are not accepted: no verifier configured")
	ErrBadRecipientID = errors.New("token subject is not a valid recipient id")
)

var recipientPattern = regexp.MustCompile(`^[A-Za-z0-9_.@:-]{1,128}$`)

// ValidRecipient reports whether id can be used as a recipient key.
func ValidRecipient(id string) bool {
	return recipientPattern.MatchString(id)
}

// Resolver maps a session token onto a recipient.
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// TokenVerifier is the part of the Firebase service the resolver needs.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// Claims carried by session JWTs.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTResolver verifies HS256 session tokens; the recipient is the subject claim,
// falling back to user_id.
type JWTResolver struct {
	secret []byte
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

func (r *JWTResolver) Resolve(_ context.Context, token string) (string, error) {
	if token == "" {
		return Anonymous, nil
	}
	if len(r.secret) == 0 {
		return "", ErrNoVerifier
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	recipient := claims.Subject
	if recipient == "" {
		recipient = claims.UserID
	}
	if !ValidRecipient(recipient) {
		return "", ErrBadRecipientID
	}
	return recipient, nil
}

// FirebaseResolver verifies Firebase ID tokens; the recipient is the Firebase UID.
type FirebaseResolver struct {
	verifier TokenVerifier
}

func NewFirebaseResolver(verifier TokenVerifier) *FirebaseResolver {
	return &FirebaseResolver{verifier: verifier}
}

func (r *FirebaseResolver) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return Anonymous, nil
	}
	verified, err := r.verifier.VerifyIDToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !ValidRecipient(verified.UID) {
		return "", ErrBadRecipientID
	}
	return verified.UID, nil
}

// NewResolver picks Firebase when the service is configured, session JWTs otherwise.
func NewResolver(cfg *config.Config, firebaseService *firebase.FirebaseService) Resolver {
	if firebaseService != nil {
		return NewFirebaseResolver(firebaseService)
	}
	return NewJWTResolver(cfg.SessionJWTSecret)
}

// GenerateToken issues a session JWT for recipient, signed with secret.
func GenerateToken(secret, recipient string, ttl time.Duration) (string, error) {
	if !ValidRecipient(recipient) {
		return "", ErrBadRecipientID
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   recipient,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}
