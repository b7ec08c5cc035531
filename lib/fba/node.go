package fba

import (
	"sync"

	"github.com/bosnet-cast/fbanode/lib/errors"
	"github.com/bosnet-cast/fbanode/lib/keypair"
	"github.com/bosnet-cast/fbanode/lib/quorum"
)

// Node is the engine's view of the local identity and quorum
// configuration.
type Node interface {
	PublicKey() string
	PrivateKey() *keypair.Full
	GenerateKeypair(seed []byte) *errors.Error
	Quorums() *quorum.Table
}

// LocalNode is the concrete Node implementation owned by the facade.
// GenerateKeypair is only safe to call before any peer connects — it
// silently reidentifies the node out from under any established quorum
// membership otherwise.
type LocalNode struct {
	mu      sync.RWMutex
	kp      *keypair.Full
	quorums *quorum.Table
}

func NewLocalNode(kp *keypair.Full) *LocalNode {
	return &LocalNode{kp: kp, quorums: quorum.NewTable()}
}

func (n *LocalNode) PublicKey() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.kp.Address()
}

func (n *LocalNode) PrivateKey() *keypair.Full {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.kp
}

func (n *LocalNode) GenerateKeypair(seed []byte) *errors.Error {
	kp, err := keypair.Generate(seed)
	if err != nil {
		return errors.New(0, "keypair generation failed").SetData("reason", err.Error())
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.kp = kp
	return nil
}

func (n *LocalNode) Quorums() *quorum.Table {
	return n.quorums
}
