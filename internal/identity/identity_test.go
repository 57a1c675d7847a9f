package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestValidRecipient(t *testing.T) {
	assert.True(t, ValidRecipient("user-42"))
	assert.True(t, ValidRecipient("a.b@example.com"))
	assert.True(t, ValidRecipient("tenant:7_x"))
	assert.False(t, ValidRecipient(""))
	assert.False(t, ValidRecipient("has space"))
	assert.False(t, ValidRecipient("slash/inside"))
}

func TestJWTResolver(t *testing.T) {
	ctx := context.Background()
	r := NewJWTResolver("s3cret")

	got, err := r.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, Anonymous, got)

	token, err := GenerateToken("s3cret", "user-1", time.Hour)
	require.NoError(t, err)
	got, err = r.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got)

	_, err = r.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongKey, err := GenerateToken("other", "user-1", time.Hour)
	require.NoError(t, err)
	_, err = r.Resolve(ctx, wrongKey)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := GenerateToken("s3cret", "user-1", -time.Minute)
	require.NoError(t, err)
	_, err = r.Resolve(ctx, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTResolver_UserIDFallbackAndBadSubject(t *testing.T) {
	ctx := context.Background()
	r := NewJWTResolver("s3cret")

	sign := func(c Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		return s
	}

	got, err := r.Resolve(ctx, sign(Claims{UserID: "legacy-7"}))
	require.NoError(t, err)
	assert.Equal(t, "legacy-7", got)

	_, err = r.Resolve(ctx, sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "bad subject"}}))
	assert.ErrorIs(t, err, ErrBadRecipientID)
}

func TestJWTResolver_NoSecret(t *testing.T) {
	r := NewJWTResolver("")
	got, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Anonymous, got)

	_, err = r.Resolve(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNoVerifier)
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error) {
	args := m.Called(ctx, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*firebaseauth.Token), args.Error(1)
}

func TestFirebaseResolver(t *testing.T) {
	ctx := context.Background()
	v := new(mockVerifier)
	v.On("VerifyIDToken", ctx, "good").Return(&firebaseauth.Token{UID: "fb-uid-1"}, nil)
	v.On("VerifyIDToken", ctx, "bad").Return(nil, errors.New("expired"))

	r := NewFirebaseResolver(v)

	got, err := r.Resolve(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "fb-uid-1", got)

	_, err = r.Resolve(ctx, "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)

	got, err = r.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, Anonymous, got)
	v.AssertExpectations(t)
}
