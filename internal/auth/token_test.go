package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCodec() *Codec {
	return NewCodec("access-secret-0123456789abcdef", "refresh-secret-0123456789abcdef",
		15*time.Minute, 7*24*time.Hour)
}

func TestAccessRoundTrip(t *testing.T) {
	c := newTestCodec()
	tok, exp, err := c.IssueAccess(42)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := c.VerifyAccess(tok)
	require.NoError(t, err)
	require.Equal(t, uint64(42), claims.UserID)
	require.WithinDuration(t, exp, claims.ExpiresAt, time.Second)
}

func TestRefreshRoundTrip(t *testing.T) {
	c := newTestCodec()
	tok, _, err := c.IssueRefresh(7)
	require.NoError(t, err)

	claims, err := c.VerifyRefresh(tok)
	require.NoError(t, err)
	require.Equal(t, uint64(7), claims.UserID)
}

func TestDomainsAreIndependent(t *testing.T) {
	c := newTestCodec()
	access, _, err := c.IssueAccess(1)
	require.NoError(t, err)
	refresh, _, err := c.IssueRefresh(1)
	require.NoError(t, err)

	_, err = c.VerifyRefresh(access)
	require.ErrorIs(t, err, ErrTokenInvalid)
	_, err = c.VerifyAccess(refresh)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTamperedTokenInvalid(t *testing.T) {
	c := newTestCodec()
	tok, _, err := c.IssueAccess(1)
	require.NoError(t, err)

	mutated := tok[:len(tok)-2] + "xx"
	_, err = c.VerifyAccess(mutated)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestMalformedToken(t *testing.T) {
	c := newTestCodec()
	_, err := c.VerifyAccess("not-a-token")
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestAccessValidForWholeTTLWindow(t *testing.T) {
	c := newTestCodec()
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.Now = func() time.Time { return issued }

	tok, _, err := c.IssueAccess(9)
	require.NoError(t, err)

	// Still valid just before the TTL elapses.
	c.Now = func() time.Time { return issued.Add(15*time.Minute - time.Second) }
	claims, err := c.VerifyAccess(tok)
	require.NoError(t, err)
	require.Equal(t, uint64(9), claims.UserID)

	// Expired immediately after.
	c.Now = func() time.Time { return issued.Add(15*time.Minute + time.Second) }
	_, err = c.VerifyAccess(tok)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestExpiredRefreshToken(t *testing.T) {
	c := newTestCodec()
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.Now = func() time.Time { return issued }

	tok, _, err := c.IssueRefresh(3)
	require.NoError(t, err)

	c.Now = func() time.Time { return issued.Add(8 * 24 * time.Hour) }
	_, err = c.VerifyRefresh(tok)
	require.ErrorIs(t, err, ErrTokenExpired)
}
