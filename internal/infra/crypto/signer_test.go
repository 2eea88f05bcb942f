package crypto

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func signPersonal(t *testing.T, message []byte) (string, string) {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sig, err := ethcrypto.Sign(accounts.TextHash(message), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return hexutil.Encode(sig), ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestRecoverSignerRoundTrip(t *testing.T) {
	msg := []byte("attestation payload")
	sigHex, addr := signPersonal(t, msg)

	got, err := RecoverSigner(msg, sigHex)
	if err != nil {
		t.Fatalf("RecoverSigner: %v", err)
	}
	if got.Hex() != addr {
		t.Fatalf("recovered %s, want %s", got.Hex(), addr)
	}
}

func TestRecoverSignerLegacyRecoveryID(t *testing.T) {
	msg := []byte("attestation payload")
	sigHex, addr := signPersonal(t, msg)

	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sig[64] += 27

	got, err := RecoverSigner(msg, hexutil.Encode(sig))
	if err != nil {
		t.Fatalf("RecoverSigner: %v", err)
	}
	if got.Hex() != addr {
		t.Fatalf("recovered %s, want %s", got.Hex(), addr)
	}
}

func TestRecoverSignerDifferentMessage(t *testing.T) {
	sigHex, addr := signPersonal(t, []byte("signed message"))

	got, err := RecoverSigner([]byte("another message"), sigHex)
	if err != nil {
		t.Fatalf("RecoverSigner: %v", err)
	}
	if got.Hex() == addr {
		t.Fatal("tampered message recovered the original signer")
	}
}

func TestRecoverSignerRejectsMalformed(t *testing.T) {
	for _, sig := range []string{"", "0x12", "not-hex", "0x" + strings.Repeat("00", 64)} {
		if _, err := RecoverSigner([]byte("m"), sig); err == nil {
			t.Errorf("expected error for signature %q", sig)
		}
	}
}

func TestPackedPayloadHashDeterministic(t *testing.T) {
	data := []any{map[string]any{"tx": "0x1", "layer2Hash": "0x2"}}
	h1, err := PackedPayloadHash(data, "tok")
	if err != nil {
		t.Fatalf("PackedPayloadHash: %v", err)
	}
	h2, err := PackedPayloadHash([]any{map[string]any{"layer2Hash": "0x2", "tx": "0x1"}}, "tok")
	if err != nil {
		t.Fatalf("PackedPayloadHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash differs for logically equal payloads: %s vs %s", h1, h2)
	}
	if !strings.HasPrefix(h1, "0x") || len(h1) != 66 {
		t.Fatalf("unexpected hash shape: %s", h1)
	}

	want := HashHex([]byte(`{"data":[{"layer2Hash":"0x2","tx":"0x1"}],"token":"tok"}`))
	if h1 != want {
		t.Fatalf("hash = %s, want %s", h1, want)
	}
}
