package cast_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bosnet-cast/fbanode/lib/cast"
	"github.com/bosnet-cast/fbanode/lib/keypair"
	"github.com/bosnet-cast/fbanode/lib/slotid"
)

var testNetworkID = []byte("test-network")

func mustKeypair(t *testing.T) *keypair.Full {
	kp, err := keypair.Generate(nil)
	require.NoError(t, err)
	return kp
}

func TestGenerateProducesVerifiableCast(t *testing.T) {
	kp := mustKeypair(t)
	channel := slotid.Channel("test")

	c, err := cast.Generate(testNetworkID, kp, channel, "", []byte("foo bar"))
	require.Nil(t, err)

	require.Equal(t, cast.Hash(testNetworkID, "", channel, []byte("foo bar")), c.Sha)
	require.True(t, keypair.Verify(kp.Address(), []byte(c.Sha), c.Sig))
	require.True(t, cast.Verify(testNetworkID, kp.Address(), channel, c))
}

func TestVerifyFailsClosedOnTamperedFields(t *testing.T) {
	kp := mustKeypair(t)
	channel := slotid.Channel("test")

	c, err := cast.Generate(testNetworkID, kp, channel, "", []byte("foo bar"))
	require.Nil(t, err)

	t.Run("flipped sha", func(t *testing.T) {
		tampered := c
		tampered.Sha = "00" + c.Sha[2:]
		require.False(t, cast.Verify(testNetworkID, kp.Address(), channel, tampered))
	})

	t.Run("flipped sig", func(t *testing.T) {
		tampered := c
		sig := append([]byte(nil), c.Sig...)
		sig[0] ^= 0xff
		tampered.Sig = sig
		require.False(t, cast.Verify(testNetworkID, kp.Address(), channel, tampered))
	})

	t.Run("missing sha", func(t *testing.T) {
		tampered := c
		tampered.Sha = ""
		require.False(t, cast.Verify(testNetworkID, kp.Address(), channel, tampered))
	})

	t.Run("wrong signer", func(t *testing.T) {
		other := mustKeypair(t)
		require.False(t, cast.Verify(testNetworkID, other.Address(), channel, c))
	})

	t.Run("wrong network", func(t *testing.T) {
		require.False(t, cast.Verify([]byte("other-network"), kp.Address(), channel, c))
	})
}

func TestSerializeRoundTrip(t *testing.T) {
	kp := mustKeypair(t)
	channel := slotid.Channel("test")

	c, err := cast.Generate(testNetworkID, kp, channel, "deadbeef", []byte("payload"))
	require.Nil(t, err)

	encoded, err := cast.Serialize(c)
	require.Nil(t, err)

	decoded, err := cast.Deserialize(encoded)
	require.Nil(t, err)
	require.Equal(t, c, decoded)
}

func TestDeserializeRejectsMalformedInput(t *testing.T) {
	_, err := cast.Deserialize([]byte(`{"sha":"abc","sig":"not-base64!!","prv":"","pay":"x"}`))
	require.NotNil(t, err)

	_, err = cast.Deserialize([]byte(`{"sha":123,"sig":"","prv":"","pay":"x"}`))
	require.NotNil(t, err)

	_, err = cast.Deserialize([]byte(`not json`))
	require.NotNil(t, err)
}
