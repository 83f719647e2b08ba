package vulnlib

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Verifier checks detached OpenPGP signatures of catalog files.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier reads an armored or binary public keyring.
func NewVerifier(keyPath string) (*Verifier, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to read key %s: %w", keyPath, err)
		}
	}

	if len(entities) == 0 {
		return nil, errors.New("keyring is empty")
	}

	return &Verifier{keyring: entities}, nil
}

func (v *Verifier) VerifyFile(dataPath, sigPath string) error {
	data, err := os.Open(dataPath)
	if err != nil {
		return err
	}
	defer data.Close()

	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return err
	}

	return v.Verify(data, sig)
}

// Verify accepts an armored or a binary signature.
func (v *Verifier) Verify(data io.ReadSeeker, sig []byte) error {
	_, err := openpgp.CheckArmoredDetachedSignature(v.keyring, data, bytes.NewReader(sig), nil)
	if err == nil {
		return nil
	}

	if _, serr := data.Seek(0, io.SeekStart); serr != nil {
		return serr
	}

	if _, berr := openpgp.CheckDetachedSignature(v.keyring, data, bytes.NewReader(sig), nil); berr != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}

	return nil
}
