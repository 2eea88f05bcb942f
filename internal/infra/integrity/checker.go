// Package integrity implements the off-chain data integrity primitive: the
// rule set that ties one record's own content to its claimed hash fields.
package integrity

import (
	"strings"

	"github.com/edhedges/receive-kit/internal/domain"
	"github.com/edhedges/receive-kit/internal/infra/crypto"
)

// Fields that reference the record from outside rather than being part of the
// hashed content.
var envelopeFields = map[string]bool{
	"tx":         true,
	"layer2Hash": true,
}

// Checker validates a record's layer2Hash against the canonical hash of the
// record's own content. It satisfies domain.RecordVerifier.
type Checker struct{}

func New() *Checker { return &Checker{} }

func (c *Checker) VerifyRecord(record domain.DataRecord) []domain.ValidationError {
	var errs []domain.ValidationError

	claimed := record.Layer2Hash()
	if claimed == "" {
		return append(errs, domain.ValidationError{
			Key:     "layer2Hash",
			Message: "record is missing a layer2Hash",
		})
	}

	content := make(map[string]any, len(record))
	for k, v := range record {
		if envelopeFields[k] {
			continue
		}
		content[k] = v
	}

	payload, err := crypto.MarshalCanonical(content)
	if err != nil {
		return append(errs, domain.ValidationError{
			Key:     "layer2Hash",
			Message: "record content is not hashable: " + err.Error(),
		})
	}
	if computed := crypto.HashHex(payload); !strings.EqualFold(computed, claimed) {
		errs = append(errs, domain.ValidationError{
			Key:     "layer2Hash",
			Message: "record content hashes to " + computed + ", claimed " + claimed,
		})
	}
	return errs
}
