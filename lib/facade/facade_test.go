package facade_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bosnet-cast/fbanode/lib/dispatcher"
	"github.com/bosnet-cast/fbanode/lib/errors"
	"github.com/bosnet-cast/fbanode/lib/facade"
	"github.com/bosnet-cast/fbanode/lib/keypair"
	"github.com/bosnet-cast/fbanode/lib/transport/memtransport"
)

// connectMesh wires three nodes into a fully connected triangle sharing a
// single named quorum set with a 2-of-3 threshold, the arrangement the
// broadcast/chained-send scenarios exercise.
func connectMesh(t *testing.T, net *memtransport.Network) (a, b, c *facade.Node, pkA, pkB, pkC string) {
	kpA, err := keypair.Generate(nil)
	require.NoError(t, err)
	kpB, err := keypair.Generate(nil)
	require.NoError(t, err)
	kpC, err := keypair.Generate(nil)
	require.NoError(t, err)

	cfg := facade.Config{RequestTimeout: 2 * time.Second, BallotRetryBase: 50 * time.Millisecond}
	a = facade.New(kpA, net, cfg, facade.Events{})
	b = facade.New(kpB, net, cfg, facade.Events{})
	c = facade.New(kpC, net, cfg, facade.Events{})

	ctx := context.Background()
	a.Start(ctx)
	b.Start(ctx)
	c.Start(ctx)
	t.Cleanup(a.Stop)
	t.Cleanup(b.Stop)
	t.Cleanup(c.Stop)

	require.NoError(t, a.Listen(net, 3001))
	require.NoError(t, b.Listen(net, 3002))
	require.NoError(t, c.Listen(net, 3003))

	pkA, pkB, pkC = kpA.Address(), kpB.Address(), kpC.Address()

	connect := func(n *facade.Node, addr, pk string) {
		done := make(chan *errors.Error, 1)
		n.PeerConnect(addr, pk, func(err *errors.Error) { done <- err })
		require.Nil(t, <-done)
	}

	connect(a, ":3002", pkB)
	connect(a, ":3003", pkC)
	connect(b, ":3001", pkA)
	connect(b, ":3003", pkC)
	connect(c, ":3001", pkA)
	connect(c, ":3002", pkB)

	validators := []string{pkA, pkB, pkC}
	require.Nil(t, a.Quorums().AddQuorum("main", validators, 2))
	require.Nil(t, b.Quorums().AddQuorum("main", validators, 2))
	require.Nil(t, c.Quorums().AddQuorum("main", validators, 2))

	return a, b, c, pkA, pkB, pkC
}

func TestThreeNodeBroadcastExternalizesEverywhere(t *testing.T) {
	net := memtransport.NewNetwork()
	a, b, c, pkA, _, _ := connectMesh(t, net)

	type observed struct {
		sender, sha string
		payload     []byte
	}
	var mu sync.Mutex
	received := map[string]observed{}
	doneA := make(chan struct{})
	doneB := make(chan struct{})
	doneC := make(chan struct{})

	record := func(name string, done chan struct{}) dispatcher.Subscriber {
		return func(sender, sha string, payload []byte) {
			mu.Lock()
			received[name] = observed{sender, sha, payload}
			mu.Unlock()
			close(done)
		}
	}
	a.Receive("test", record("a", doneA))
	b.Receive("test", record("b", doneB))
	c.Receive("test", record("c", doneC))

	sendDone := make(chan string, 1)
	a.Send(context.Background(), "test", []byte("foo bar"), func(err *errors.Error, sha string) {
		require.Nil(t, err)
		sendDone <- sha
	})

	var sha string
	select {
	case sha = <-sendDone:
	case <-time.After(3 * time.Second):
		t.Fatal("send never resolved")
	}

	for _, done := range []chan struct{}{doneA, doneB, doneC} {
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatal("subscriber never fired")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, name := range []string{"a", "b", "c"} {
		got := received[name]
		require.Equal(t, pkA, got.sender, name)
		require.Equal(t, sha, got.sha, name)
		require.Equal(t, []byte("foo bar"), got.payload, name)
	}
}

func TestSendRejectsReservedChannelName(t *testing.T) {
	net := memtransport.NewNetwork()
	kp, err := keypair.Generate(nil)
	require.NoError(t, err)
	n := facade.New(kp, net, facade.Config{RequestTimeout: time.Second, BallotRetryBase: 50 * time.Millisecond}, facade.Events{})
	n.Start(context.Background())
	t.Cleanup(n.Stop)

	called := make(chan struct{})
	n.Send(context.Background(), "a:b", []byte("x"), func(err *errors.Error, sha string) {
		require.NotNil(t, err)
		require.Equal(t, errors.ErrInvalidChannel.Code, err.Code)
		close(called)
	})

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}

func TestPeerDisconnectRemovesFromRegistry(t *testing.T) {
	net := memtransport.NewNetwork()
	a, b, _, _, pkB, _ := connectMesh(t, net)
	_ = b

	require.Len(t, a.PeerList(), 2)

	a.PeerDisconnect(pkB)

	require.Eventually(t, func() bool {
		return len(a.PeerList()) == 1
	}, time.Second, 10*time.Millisecond)

	for _, p := range a.PeerList() {
		require.NotEqual(t, pkB, p.PubKey)
	}
}
