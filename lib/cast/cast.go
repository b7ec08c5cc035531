// Package cast implements the unit of agreement: a signed, hash-chained
// application message sent on a channel. Construction and verification
// follow a sign/verify split over a hash of the message's chain position,
// channel, and payload.
package cast

import (
	"encoding/hex"
	"encoding/json"

	"github.com/btcsuite/btcutil/base58"

	"github.com/bosnet-cast/fbanode/lib/common"
	"github.com/bosnet-cast/fbanode/lib/errors"
	"github.com/bosnet-cast/fbanode/lib/keypair"
	"github.com/bosnet-cast/fbanode/lib/slotid"
)

// Cast is the wire and in-memory representation of a single agreed-on
// message. Prv is empty for the first cast a sender makes on a channel.
type Cast struct {
	Prv string `json:"prv"`
	Pay []byte `json:"-"`
	Sha string `json:"sha"`
	Sig []byte `json:"-"`
}

// wireCast is Cast's JSON shape: sig base58, pay a plain string, sha/prv
// hex.
type wireCast struct {
	Sha string `json:"sha"`
	Sig string `json:"sig"`
	Prv string `json:"prv"`
	Pay string `json:"pay"`
}

// Hash computes H([networkID, prv, channel, pay]), the chain-position hash
// every cast is signed over. Mixing in networkID means a keypair's
// signature over a channel/payload on one network never verifies on
// another, even if both networks happen to share validators.
func Hash(networkID []byte, prv string, channel slotid.Channel, payload []byte) string {
	return common.Hash([]string{string(networkID), prv, string(channel), string(payload)})
}

// Generate builds and signs a new cast. It never touches a cast store;
// callers must supply prv from their own lookup.
func Generate(networkID []byte, full *keypair.Full, channel slotid.Channel, prv string, payload []byte) (Cast, *errors.Error) {
	sha := Hash(networkID, prv, channel, payload)

	sig, err := keypair.Sign(full, []byte(sha))
	if err != nil {
		return Cast{}, errors.ErrSignFail.Clone().SetData("reason", err.Error())
	}

	return Cast{Prv: prv, Pay: payload, Sha: sha, Sig: sig}, nil
}

// Verify checks that c is well-formed and was signed by senderPK over the
// recomputed sha for channel on networkID. It fails closed: any parse
// error, mismatched hash, or signature failure returns false, never
// panics.
func Verify(networkID []byte, senderPK string, channel slotid.Channel, c Cast) bool {
	if c.Sha == "" || c.Sig == nil {
		return false
	}

	expected := Hash(networkID, c.Prv, channel, c.Pay)
	if expected != c.Sha {
		return false
	}

	return keypair.Verify(senderPK, []byte(c.Sha), c.Sig)
}

// Serialize renders the cast as the JSON object carried as the `value`
// of a consensus slot.
func Serialize(c Cast) ([]byte, *errors.Error) {
	w := wireCast{
		Sha: c.Sha,
		Sig: base58.Encode(c.Sig),
		Prv: c.Prv,
		Pay: string(c.Pay),
	}

	b, err := json.Marshal(w)
	if err != nil {
		return nil, errors.ErrParseFail.Clone().SetData("reason", err.Error())
	}
	return b, nil
}

// Deserialize is the strict inverse of Serialize: it validates field
// shape, failing closed on any parse or type error, before returning a
// usable Cast.
func Deserialize(data []byte) (Cast, *errors.Error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Cast{}, errors.ErrParseFail.Clone().SetData("reason", err.Error())
	}

	sha, ok := raw["sha"].(string)
	if !ok {
		return Cast{}, errors.ErrParseFail.Clone().SetData("field", "sha")
	}
	sigStr, ok := raw["sig"].(string)
	if !ok {
		return Cast{}, errors.ErrParseFail.Clone().SetData("field", "sig")
	}
	prv, ok := raw["prv"].(string)
	if !ok {
		return Cast{}, errors.ErrParseFail.Clone().SetData("field", "prv")
	}
	pay, ok := raw["pay"].(string)
	if !ok {
		return Cast{}, errors.ErrParseFail.Clone().SetData("field", "pay")
	}

	if sigStr == "" {
		return Cast{}, errors.ErrParseFail.Clone().SetData("field", "sig")
	}
	sig := base58.Decode(sigStr)
	if len(sig) == 0 {
		return Cast{}, errors.ErrParseFail.Clone().SetData("field", "sig")
	}

	if _, hexErr := hex.DecodeString(sha); hexErr != nil {
		return Cast{}, errors.ErrParseFail.Clone().SetData("field", "sha")
	}

	return Cast{Sha: sha, Sig: sig, Prv: prv, Pay: []byte(pay)}, nil
}
