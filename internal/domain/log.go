package domain

// TraitAttestedEvent is the registry event recorded for every attestation.
const TraitAttestedEvent = "TraitAttested"

// DecodedLogEvent is one decoded field of one emitted event.
type DecodedLogEvent struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// DecodedLog is one log entry of a transaction receipt decoded against the
// attestation registry ABI. Logs that match no registry event are never
// represented; the decoder omits them.
type DecodedLog struct {
	Name    string            `json:"name"`
	Address string            `json:"address"`
	Events  []DecodedLogEvent `json:"events"`
}

// Event returns the value of the named decoded field.
func (l DecodedLog) Event(name string) (string, bool) {
	for _, ev := range l.Events {
		if ev.Name == name {
			return ev.Value, true
		}
	}
	return "", false
}
