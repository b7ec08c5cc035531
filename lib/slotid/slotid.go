// Package slotid defines the SlotID newtype string and its grammar,
// channel ":" pubkey ":" sha. Using a distinct type (as opposed to a bare
// string) keeps store/registry/pending-request maps from being
// accidentally keyed by the wrong kind of string.
package slotid

import (
	"strings"

	"github.com/bosnet-cast/fbanode/lib/errors"
)

const separator = ":"

// Channel is a named, unordered bus; it may not contain ':'.
type Channel string

func (c Channel) Valid() bool {
	return !strings.Contains(string(c), separator)
}

// SlotID identifies a single consensus instance: channel:sender:sha.
type SlotID string

// New builds a SlotID from its parts. Callers are responsible for ensuring
// channel does not contain ':' (send() rejects such channels before ever
// reaching here).
func New(channel Channel, sender, sha string) SlotID {
	return SlotID(string(channel) + separator + sender + separator + sha)
}

func (s SlotID) String() string {
	return string(s)
}

// Parse splits a SlotID back into its channel, sender and sha parts.
func Parse(s SlotID) (channel Channel, sender string, sha string, err *errors.Error) {
	parts := strings.SplitN(string(s), separator, 3)
	if len(parts) != 3 {
		return "", "", "", errors.ErrParseFail.Clone().SetData("slot", string(s))
	}
	return Channel(parts[0]), parts[1], parts[2], nil
}
