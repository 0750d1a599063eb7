package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/talentgate/internal/model"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newCodec(t *testing.T) (*Codec, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2025, 5, 26, 10, 0, 0, 0, time.UTC)}
	return NewCodec([]byte("test-secret"), 24*time.Hour, WithClock(clk.Now)), clk
}

var alice = model.Identity{UserID: 42, Email: "a@x.com", IsAdmin: false}

func TestGenerateVerify_RoundTrip(t *testing.T) {
	t.Parallel()
	c, clk := newCodec(t)

	tok, err := c.Generate(alice)
	require.NoError(t, err)

	claims, err := c.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, alice, claims.Identity)
	require.Equal(t, clk.Now(), claims.IssuedAt.Time.UTC())
	require.Equal(t, clk.Now().Add(24*time.Hour), claims.ExpiresAt.Time.UTC())
	require.NotEmpty(t, claims.ID)
}

func TestVerify_ExpiredAfterHorizon(t *testing.T) {
	t.Parallel()
	c, clk := newCodec(t)

	tok, err := c.Generate(alice)
	require.NoError(t, err)

	clk.Advance(24*time.Hour - time.Second)
	_, err = c.Verify(tok)
	require.NoError(t, err)

	clk.Advance(2 * time.Second)
	_, err = c.Verify(tok)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.NotErrorIs(t, err, ErrTokenMalformed)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()
	c, _ := newCodec(t)

	tok, err := c.Generate(alice)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)

	// Re-sign the same claims with a different key.
	other := NewCodec([]byte("other-secret"), 24*time.Hour)
	forged, err := other.Generate(alice)
	require.NoError(t, err)

	// Swap in a payload claiming admin while keeping the original signature.
	admin := NewCodec([]byte("test-secret"), 24*time.Hour)
	adminTok, err := admin.Generate(model.Identity{UserID: 42, Email: "a@x.com", IsAdmin: true})
	require.NoError(t, err)
	tampered := parts[0] + "." + strings.Split(adminTok, ".")[1] + "." + parts[2]

	for _, bad := range []string{"", "garbage", "a.b.c", forged, tampered} {
		_, err := c.Verify(bad)
		require.ErrorIs(t, err, ErrTokenMalformed, "token %q", bad)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()
	c, clk := newCodec(t)

	claims := model.Claims{
		Identity: alice,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(clk.Now()),
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = c.Verify(none)
	require.ErrorIs(t, err, ErrTokenMalformed)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = c.Verify(hs512)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerify_MissingIdentity(t *testing.T) {
	t.Parallel()
	c, _ := newCodec(t)

	tok, err := c.Generate(model.Identity{Email: "nobody@x.com"})
	require.NoError(t, err)
	_, err = c.Verify(tok)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestDecode_IgnoresSignatureAndExpiry(t *testing.T) {
	t.Parallel()
	c, clk := newCodec(t)

	tok, err := c.Generate(alice)
	require.NoError(t, err)
	clk.Advance(48 * time.Hour)

	claims, ok := Decode(tok)
	require.True(t, ok)
	require.Equal(t, alice, claims.Identity)

	_, ok = Decode("not a token")
	require.False(t, ok)

	exp, ok := ExpiresAt(tok)
	require.True(t, ok)
	require.Equal(t, clk.Now().Add(-24*time.Hour), exp.UTC())

	_, ok = ExpiresAt("not a token")
	require.False(t, ok)
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	c, clk := newCodec(t)

	old, err := c.Generate(alice)
	require.NoError(t, err)

	clk.Advance(3 * time.Hour)
	fresh, err := c.Refresh(old)
	require.NoError(t, err)
	require.NotEqual(t, old, fresh)

	oldClaims, err := c.Verify(old)
	require.NoError(t, err)
	newClaims, err := c.Verify(fresh)
	require.NoError(t, err)

	require.Equal(t, oldClaims.Identity, newClaims.Identity)
	require.Equal(t, clk.Now(), newClaims.IssuedAt.Time.UTC())
	require.Equal(t, clk.Now().Add(24*time.Hour), newClaims.ExpiresAt.Time.UTC())
	require.NotEqual(t, oldClaims.ID, newClaims.ID)

	clk.Advance(22 * time.Hour)
	_, err = c.Refresh(fresh)
	require.NoError(t, err, "fresh token still inside its own horizon")
	_, err = c.Refresh(old)
	require.ErrorIs(t, err, ErrTokenExpired)

	_, err = c.Refresh("garbage")
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestIssuerEnforced(t *testing.T) {
	t.Parallel()

	a := NewCodec([]byte("s"), time.Hour, WithIssuer("talentgate"))
	b := NewCodec([]byte("s"), time.Hour, WithIssuer("someone-else"))

	tok, err := b.Generate(alice)
	require.NoError(t, err)
	_, err = a.Verify(tok)
	require.ErrorIs(t, err, ErrTokenMalformed)

	tok, err = a.Generate(alice)
	require.NoError(t, err)
	_, err = a.Verify(tok)
	require.NoError(t, err)
}
