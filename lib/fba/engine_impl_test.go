package fba_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bosnet-cast/fbanode/lib/errors"
	"github.com/bosnet-cast/fbanode/lib/fba"
	"github.com/bosnet-cast/fbanode/lib/keypair"
	"github.com/bosnet-cast/fbanode/lib/slotid"
)

// recordingListener captures emitted messages/values and can hand messages
// straight to other engines, simulating a fully meshed in-process cluster.
type recordingListener struct {
	mu     sync.Mutex
	peers  []*fba.RefEngine
	values []struct {
		slot  slotid.SlotID
		value string
	}
}

func (l *recordingListener) OnMessage(frame []byte) {
	l.mu.Lock()
	peers := append([]*fba.RefEngine(nil), l.peers...)
	l.mu.Unlock()

	for _, p := range peers {
		p.Process(frame)
	}
}

func (l *recordingListener) OnValue(slot slotid.SlotID, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values = append(l.values, struct {
		slot  slotid.SlotID
		value string
	}{slot, value})
}

func passGenerator(slot fba.Slot, x string) fba.Ballot {
	if b, ok := slot.CurrentBallot(); ok {
		return fba.Ballot{N: b.N + 1, X: x}
	}
	return fba.Ballot{N: 0, X: x}
}

func passVerifier(fba.Slot, fba.Ballot, fba.Node) bool { return true }
func passAcceptor(fba.Slot, fba.Ballot, fba.Node) bool { return true }

func newTestNode(t *testing.T) (*fba.LocalNode, *recordingListener, *fba.RefEngine) {
	kp, err := keypair.Generate(nil)
	require.NoError(t, err)

	node := fba.NewLocalNode(kp)

	l := &recordingListener{}
	engine := fba.NewRefEngine(node, passGenerator, passVerifier, passAcceptor, l)
	return node, l, engine
}

func TestThreeNodeClusterExternalizes(t *testing.T) {
	n1, l1, e1 := newTestNode(t)
	n2, l2, e2 := newTestNode(t)
	n3, l3, e3 := newTestNode(t)

	validators := []string{n1.PublicKey(), n2.PublicKey(), n3.PublicKey()}
	for _, n := range []*fba.LocalNode{n1, n2, n3} {
		require.Nil(t, n.Quorums().AddQuorum("main", validators, 2))
	}

	l1.peers = []*fba.RefEngine{e1, e2, e3}
	l2.peers = []*fba.RefEngine{e1, e2, e3}
	l3.peers = []*fba.RefEngine{e1, e2, e3}

	done := make(chan string, 1)
	e1.Request(context.Background(), slotid.SlotID("test:"+n1.PublicKey()+":deadbeef"), "foo bar", 2*time.Second,
		func(err *errors.Error, value string) {
			require.Nil(t, err)
			done <- value
		})

	select {
	case v := <-done:
		require.Equal(t, "foo bar", v)
	case <-time.After(2 * time.Second):
		t.Fatal("request did not externalize in time")
	}

	require.Len(t, l2.values, 1)
	require.Len(t, l3.values, 1)
}

func TestRequestTimesOutWithoutQuorum(t *testing.T) {
	n1, l1, e1 := newTestNode(t)
	require.Nil(t, n1.Quorums().AddQuorum("main", []string{"A", "B", "C"}, 3))
	l1.peers = []*fba.RefEngine{e1}

	done := make(chan *errors.Error, 1)
	e1.Request(context.Background(), slotid.SlotID("test:"+n1.PublicKey()+":abc"), "x", 200*time.Millisecond,
		func(err *errors.Error, value string) { done <- err })

	select {
	case err := <-done:
		require.NotNil(t, err)
	case <-time.After(1 * time.Second):
		t.Fatal("expected timeout callback")
	}
}
