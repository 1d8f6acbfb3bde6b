// Package ident wraps the cryptographic primitives spec §6 treats as a
// black box: deriving a public key from a private key, deriving a fee
// address from a public key, and content-hashing arbitrary bytes. It is
// grounded on the teacher's use of github.com/btcsuite/btcd for
// secp256k1 arithmetic (the only elliptic-curve dependency in the pack
// not bound to geth's own unavailable internal crypto package) and on
// golang.org/x/crypto/sha3 for the content hash, the same hash family
// berith/selection/candidates.go reaches for (there via crypto/sha256;
// here sha3 is used instead since it is the hash the rest of the pack's
// geth-derived repos use for content-addressing, e.g. block hashes).
package ident

import (
	"encoding/hex"
	"encoding/json"

	"github.com/btcsuite/btcd/btcec"
	"golang.org/x/crypto/sha3"
)

// HashSize is the width of the content hash used for BlockId/OperationId.
const HashSize = 32

// Hash is a fixed-width content hash.
type Hash [HashSize]byte

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, 2*HashSize)
	for i, b := range h {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}

// H is the content-hash function: H(bytes) -> Hash.
func H(data []byte) Hash {
	var out Hash
	sum := sha3.Sum256(data)
	copy(out[:], sum[:])
	return out
}

// PrivateKey and PublicKey are opaque node-identity key types. The
// worker never inspects their internals beyond the derivation functions
// below.
type PrivateKey struct{ key *btcec.PrivateKey }
type PublicKey struct{ key *btcec.PublicKey }

// Address is the fixed-width fee-target/account identifier derived from
// a public key.
type Address [20]byte

func (a Address) Bytes() []byte { return a[:] }

func (a Address) Equal(other Address) bool { return a == other }

func (a Address) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, 2*len(a))
	for i, b := range a {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}

// GenerateKey produces a new random node keypair.
func GenerateKey() (PrivateKey, error) {
	k, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{key: k}, nil
}

// PrivateKeyFromBytes parses a 32-byte scalar into a node private key.
func PrivateKeyFromBytes(b []byte) PrivateKey {
	k, _ := btcec.PrivKeyFromBytes(btcec.S256(), b)
	return PrivateKey{key: k}
}

func (p PrivateKey) Bytes() []byte {
	if p.key == nil {
		return nil
	}
	return p.key.Serialize()
}

// DerivePublicKey is the §6 "derive_public_key(private)" collaborator
// function.
func DerivePublicKey(priv PrivateKey) PublicKey {
	return PublicKey{key: priv.key.PubKey()}
}

func (p PublicKey) Bytes() []byte {
	if p.key == nil {
		return nil
	}
	return p.key.SerializeCompressed()
}

func (p PublicKey) Equal(other PublicKey) bool {
	if p.key == nil || other.key == nil {
		return p.key == other.key
	}
	return p.key.IsEqual(other.key)
}

// MarshalJSON renders the compressed pubkey as a hex string; PublicKey
// has no exported fields for encoding/json to walk on its own.
func (p PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(p.Bytes()))
}

// AddressFromPublicKey is the §6 "address_from_public_key(public)"
// collaborator function: the low 20 bytes of H(compressed pubkey).
func AddressFromPublicKey(pub PublicKey) Address {
	h := H(pub.Bytes())
	var addr Address
	copy(addr[:], h[HashSize-20:])
	return addr
}

