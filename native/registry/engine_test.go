package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	clearingerrors "github.com/smith5mc/clearing-sub001/core/errors"
)

type staticTokens struct{ known map[string]bool }

func (s staticTokens) Contains(tokenID string) bool { return s.known[tokenID] }

func newTestEngine() *Engine {
	e := NewEngine(staticTokens{known: map[string]bool{"T0": true, "T1": true, "T2": true}})
	e.SetState(NewMemState())
	return e
}

func TestConfigureRejectsEmptyAndDuplicate(t *testing.T) {
	e := newTestEngine()

	_, err := e.Configure("alice", nil)
	require.ErrorIs(t, err, clearingerrors.ErrInvalidConfig)

	_, err = e.Configure("alice", []string{"T0", "t0"})
	require.ErrorIs(t, err, clearingerrors.ErrInvalidConfig)
}

func TestConfigureRejectsUnknownToken(t *testing.T) {
	e := newTestEngine()
	_, err := e.Configure("alice", []string{"T9"})
	require.ErrorIs(t, err, clearingerrors.ErrInvalidConfig)
}

func TestConfigureAndGet(t *testing.T) {
	e := newTestEngine()
	u, err := e.Configure("alice", []string{"T0", "T1"})
	require.NoError(t, err)
	require.Equal(t, []string{"T0", "T1"}, u.AcceptedTokens)

	got, err := e.Get("alice")
	require.NoError(t, err)
	require.Equal(t, u, got)
}

func TestGetUnknownUser(t *testing.T) {
	e := newTestEngine()
	_, err := e.Get("nobody")
	require.True(t, errors.Is(err, clearingerrors.ErrUnknownID))
}

func TestAddAndRemoveToken(t *testing.T) {
	e := newTestEngine()
	_, err := e.Configure("alice", []string{"T0"})
	require.NoError(t, err)

	u, err := e.AddToken("alice", "T1")
	require.NoError(t, err)
	require.Equal(t, []string{"T0", "T1"}, u.AcceptedTokens)

	u, err = e.AddToken("alice", "t1")
	require.NoError(t, err)
	require.Equal(t, []string{"T0", "T1"}, u.AcceptedTokens)

	u, err = e.RemoveToken("alice", "T0")
	require.NoError(t, err)
	require.Equal(t, []string{"T1"}, u.AcceptedTokens)
}

func TestRemoveLastTokenLeavesEmptyRejectedOnNextConfigure(t *testing.T) {
	e := newTestEngine()
	_, err := e.Configure("alice", []string{"T0"})
	require.NoError(t, err)

	_, err = e.RemoveToken("alice", "T0")
	require.ErrorIs(t, err, clearingerrors.ErrInvalidConfig)
}

func TestSetRankPermutesWithoutChangingMembership(t *testing.T) {
	e := newTestEngine()
	_, err := e.Configure("alice", []string{"T0", "T1", "T2"})
	require.NoError(t, err)

	u, err := e.SetRank("alice", []string{"T2", "T0", "T1"})
	require.NoError(t, err)
	require.Equal(t, []string{"T2", "T0", "T1"}, u.AcceptedTokens)
}

func TestSetRankRejectsMembershipChange(t *testing.T) {
	e := newTestEngine()
	_, err := e.Configure("alice", []string{"T0", "T1"})
	require.NoError(t, err)

	_, err = e.SetRank("alice", []string{"T0", "T2"})
	require.ErrorIs(t, err, clearingerrors.ErrInvalidConfig)
}
