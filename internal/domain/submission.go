package domain

// DataRecord is one shared attestation reference. Beyond the three fields the
// pipeline reads directly, records carry arbitrary additional fields that the
// off-chain integrity checker consumes, so the record stays an open map.
type DataRecord map[string]any

func (r DataRecord) stringField(key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Tx is the identifier of the transaction that recorded this attestation.
func (r DataRecord) Tx() string { return r.stringField("tx") }

// Layer2Hash is the claimed content hash expected to match the on-chain dataHash.
func (r DataRecord) Layer2Hash() string { return r.stringField("layer2Hash") }

// Attester is the claimed address of the party that recorded the attestation.
func (r DataRecord) Attester() string { return r.stringField("attester") }

// Submission is the raw inbound payload of POST /api/receive.
type Submission struct {
	Token      string       `json:"token"`
	Subject    string       `json:"subject"`
	Data       []DataRecord `json:"data"`
	PackedData string       `json:"packedData"`
	Signature  string       `json:"signature"`
}

// RecordResult pairs one record's claimed hash with the integrity errors found
// for it. Records with zero errors are still reported so the response mirrors
// the submitted data order.
type RecordResult struct {
	Layer2Hash string            `json:"layer2Hash"`
	Errors     []ValidationError `json:"errors"`
}
