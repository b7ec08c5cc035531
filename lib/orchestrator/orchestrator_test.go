package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bosnet-cast/fbanode/lib/cast"
	"github.com/bosnet-cast/fbanode/lib/caststore"
	"github.com/bosnet-cast/fbanode/lib/errors"
	"github.com/bosnet-cast/fbanode/lib/fba"
	"github.com/bosnet-cast/fbanode/lib/keypair"
	"github.com/bosnet-cast/fbanode/lib/orchestrator"
	"github.com/bosnet-cast/fbanode/lib/slotid"
)

type stubEngine struct {
	lastSlot  slotid.SlotID
	lastValue string
	resolve   func(cb fba.RequestCallback, value string)
}

func (s *stubEngine) Process([]byte) *errors.Error { return nil }

func (s *stubEngine) Request(ctx context.Context, slot slotid.SlotID, value string, timeout time.Duration, cb fba.RequestCallback) {
	s.lastSlot = slot
	s.lastValue = value
	s.resolve(cb, value)
}

func (s *stubEngine) Reclaim(slotid.SlotID) {}

var testNetworkID = []byte("test-network")

func TestSendRejectsInvalidChannel(t *testing.T) {
	kp, err := keypair.Generate(nil)
	require.NoError(t, err)

	o := orchestrator.New(kp, testNetworkID, caststore.New(), &stubEngine{}, time.Second)

	var gotErr *errors.Error
	o.Send(context.Background(), "a:b", []byte("x"), func(err *errors.Error, sha string) {
		gotErr = err
	})
	require.Equal(t, errors.ErrInvalidChannel, gotErr)
}

func TestSendRejectsNilPayload(t *testing.T) {
	kp, err := keypair.Generate(nil)
	require.NoError(t, err)

	o := orchestrator.New(kp, testNetworkID, caststore.New(), &stubEngine{}, time.Second)

	var gotErr *errors.Error
	o.Send(context.Background(), "test", nil, func(err *errors.Error, sha string) {
		gotErr = err
	})
	require.Equal(t, errors.ErrInvalidPayload, gotErr)
}

func TestSendPropagatesExternalizedSha(t *testing.T) {
	kp, err := keypair.Generate(nil)
	require.NoError(t, err)

	engine := &stubEngine{resolve: func(cb fba.RequestCallback, value string) { cb(nil, value) }}
	o := orchestrator.New(kp, testNetworkID, caststore.New(), engine, time.Second)

	var gotSha string
	var gotErr *errors.Error
	o.Send(context.Background(), "test", []byte("foo bar"), func(err *errors.Error, sha string) {
		gotErr, gotSha = err, sha
	})

	require.Nil(t, gotErr)
	require.Equal(t, cast.Hash(testNetworkID, "", "test", []byte("foo bar")), gotSha)
	require.Contains(t, engine.lastSlot.String(), kp.Address())
}

func TestSendPropagatesEngineError(t *testing.T) {
	kp, err := keypair.Generate(nil)
	require.NoError(t, err)

	engine := &stubEngine{resolve: func(cb fba.RequestCallback, value string) { cb(errors.ErrRequestTimeout, "") }}
	o := orchestrator.New(kp, testNetworkID, caststore.New(), engine, time.Second)

	var gotErr *errors.Error
	o.Send(context.Background(), "test", []byte("foo bar"), func(err *errors.Error, sha string) {
		gotErr = err
	})
	require.Equal(t, errors.ErrRequestTimeout, gotErr)
}
