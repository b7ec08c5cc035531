package callbacks_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bosnet-cast/fbanode/lib/callbacks"
	"github.com/bosnet-cast/fbanode/lib/cast"
	"github.com/bosnet-cast/fbanode/lib/caststore"
	"github.com/bosnet-cast/fbanode/lib/fba"
	"github.com/bosnet-cast/fbanode/lib/keypair"
	"github.com/bosnet-cast/fbanode/lib/slotid"
)

var testNetworkID = []byte("test-network")

type fakeSlot struct {
	id         slotid.SlotID
	createTime time.Time
	ballot     *fba.Ballot
}

func (s fakeSlot) ID() slotid.SlotID      { return s.id }
func (s fakeSlot) CreateTime() time.Time  { return s.createTime }
func (s fakeSlot) CurrentBallot() (fba.Ballot, bool) {
	if s.ballot == nil {
		return fba.Ballot{}, false
	}
	return *s.ballot, true
}

func mustBallot(t *testing.T, c cast.Cast) fba.Ballot {
	encoded, err := cast.Serialize(c)
	require.Nil(t, err)
	return fba.Ballot{N: 0, X: string(encoded)}
}

func TestVerifierRejectsBadCastAndRateGates(t *testing.T) {
	kp, err := keypair.Generate(nil)
	require.NoError(t, err)
	channel := slotid.Channel("test")

	c, cerr := cast.Generate(testNetworkID, kp, channel, "", []byte("foo bar"))
	require.Nil(t, cerr)

	slot := fakeSlot{id: slotid.New(channel, kp.Address(), c.Sha), createTime: time.Now()}
	cb := callbacks.New(caststore.New(), testNetworkID, time.Second, nil, nil)

	require.True(t, cb.Verifier(slot, mustBallot(t, c), nil))

	t.Run("tampered signature", func(t *testing.T) {
		bad := c
		sig := append([]byte(nil), c.Sig...)
		sig[0] ^= 0xff
		bad.Sig = sig
		require.False(t, cb.Verifier(slot, mustBallot(t, bad), nil))
	})

	t.Run("rate gate blocks early high ballots", func(t *testing.T) {
		ballot := mustBallot(t, c)
		ballot.N = 3
		require.False(t, cb.Verifier(slot, ballot, nil))
	})

	t.Run("rate gate passes after elapsed time", func(t *testing.T) {
		slotLate := fakeSlot{id: slot.id, createTime: time.Now().Add(-3500 * time.Millisecond)}
		ballot := mustBallot(t, c)
		ballot.N = 3
		require.True(t, cb.Verifier(slotLate, ballot, nil))
	})
}

func TestAcceptorRequiresChainContinuity(t *testing.T) {
	kp, err := keypair.Generate(nil)
	require.NoError(t, err)
	channel := slotid.Channel("test")
	store := caststore.New()
	cb := callbacks.New(store, testNetworkID, time.Second, nil, nil)

	first, cerr := cast.Generate(testNetworkID, kp, channel, "", []byte("one"))
	require.Nil(t, cerr)
	slot1 := fakeSlot{id: slotid.New(channel, kp.Address(), first.Sha), createTime: time.Now()}
	require.True(t, cb.Acceptor(slot1, mustBallot(t, first), nil))

	second, cerr := cast.Generate(testNetworkID, kp, channel, first.Sha, []byte("two"))
	require.Nil(t, cerr)
	slot2 := fakeSlot{id: slotid.New(channel, kp.Address(), second.Sha), createTime: time.Now()}

	// store has not been updated yet (that's the externalization handler's
	// job) so a chained cast cannot be locally accepted...
	require.False(t, cb.Acceptor(slot2, mustBallot(t, second), nil))

	// ...until the prior cast is externalized into the store.
	store.Put(channel, kp.Address(), first)
	require.True(t, cb.Acceptor(slot2, mustBallot(t, second), nil))
}

func TestPayloadPolicyHooks(t *testing.T) {
	kp, err := keypair.Generate(nil)
	require.NoError(t, err)
	channel := slotid.Channel("test")

	c, cerr := cast.Generate(testNetworkID, kp, channel, "", []byte("bad"))
	require.Nil(t, cerr)
	slot := fakeSlot{id: slotid.New(channel, kp.Address(), c.Sha), createTime: time.Now()}

	reject := func(string, slotid.Channel, []byte) bool { return false }
	cb := callbacks.New(caststore.New(), testNetworkID, time.Second, reject, reject)

	require.False(t, cb.Verifier(slot, mustBallot(t, c), nil))
	require.False(t, cb.Acceptor(slot, mustBallot(t, c), nil))
}
