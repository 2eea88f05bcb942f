package crypto

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// HashHex returns the 0x-prefixed keccak-256 digest of b.
func HashHex(b []byte) string {
	return hexutil.Encode(ethcrypto.Keccak256(b))
}

// PackedPayloadHash recomputes the content hash a submitter commits to:
// keccak-256 over the canonical encoding of {data, token}. The canonical
// encoder sorts keys, so "data" precedes "token" at the top level and every
// record's fields are ordered the same way regardless of how the submitter
// serialized them.
func PackedPayloadHash(data any, token string) (string, error) {
	payload, err := MarshalCanonical(map[string]any{
		"data":  data,
		"token": token,
	})
	if err != nil {
		return "", err
	}
	return HashHex(payload), nil
}
