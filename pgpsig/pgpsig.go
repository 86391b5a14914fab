// Package pgpsig is an optional, CLI-adjacent helper for checking a
// manifest.Signature against a trusted keyring. It is never on the core
// parse/validate/serialize path: the core only decodes and stores the
// sha256sum and base64 signature bytes of a signature manifest.
package pgpsig

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/crypto/openpgp"

	"github.com/build2/libbpkg-sub000/bpkgerror"
)

// Keyring wraps a loaded set of trusted public keys.
type Keyring struct {
	entities openpgp.EntityList
}

// LoadKeyring reads an ASCII-armored or binary OpenPGP public keyring from
// r, the way a CLI driver would load a repository's trusted certificate
// store.
func LoadKeyring(r io.Reader) (*Keyring, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, bpkgerror.New(bpkgerror.Value, "invalid OpenPGP keyring: %s", err)
	}
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, bpkgerror.New(bpkgerror.Value, "invalid OpenPGP keyring: %s", err)
		}
	}
	return &Keyring{entities: entities}, nil
}

// VerifyDetached checks sig as a detached signature over signed, issued by
// a key in k. It returns the signing entity's primary key fingerprint on
// success.
func (k *Keyring) VerifyDetached(signed []byte, sig []byte) (fingerprint string, err error) {
	signer, err := openpgp.CheckDetachedSignature(k.entities, bytes.NewReader(signed), bytes.NewReader(sig))
	if err != nil {
		return "", bpkgerror.New(bpkgerror.Value, "signature verification failed: %s", err)
	}
	if signer == nil || signer.PrimaryKey == nil {
		return "", bpkgerror.New(bpkgerror.Logic, "verified signature without a resolvable signer")
	}
	return fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint), nil
}
