package crypto

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// RecoverSigner recovers the address that produced sigHex over message using
// the EIP-191 personal-message scheme. The recovery id accepts both the raw
// 0/1 form and the legacy 27/28 form wallets emit.
func RecoverSigner(message []byte, sigHex string) (common.Address, error) {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("malformed signature: %w", err)
	}
	if len(sig) != ethcrypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", ethcrypto.SignatureLength, len(sig))
	}
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}

	pub, err := ethcrypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// DecodePacked turns the hex-encoded packed data back into the signed bytes.
func DecodePacked(packed string) ([]byte, error) {
	b, err := hexutil.Decode(packed)
	if err != nil {
		return nil, fmt.Errorf("malformed packed data: %w", err)
	}
	return b, nil
}
