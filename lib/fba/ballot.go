package fba

import "encoding/json"

// Ballot is the opaque unit the engine rounds on within a slot, per spec
// §4.4/GLOSSARY: n is the retry counter, x is the proposed value (a
// serialized cast for this core's usage, but the engine itself never
// interprets x).
type Ballot struct {
	N int    `json:"n"`
	X string `json:"x"`
}

func (b Ballot) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

func UnmarshalBallot(data []byte) (Ballot, error) {
	var b Ballot
	err := json.Unmarshal(data, &b)
	return b, err
}
