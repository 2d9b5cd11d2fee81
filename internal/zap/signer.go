package zap

import (
	"fmt"

	"github.com/gudnuf/nostrudel/internal/errors"
	"github.com/nbd-wtf/go-nostr"
)

// Signer turns an unsigned zap request into a signed, verifiable event.
type Signer interface {
	Sign(ev *nostr.Event) error
}

// KeySigner signs with a locally held private key.
type KeySigner struct {
	privateKey string
}

func NewKeySigner(privateKey string) *KeySigner {
	return &KeySigner{privateKey: privateKey}
}

func (s *KeySigner) Sign(ev *nostr.Event) error {
	if s.privateKey == "" {
		return errors.New(errors.NoActiveIdentityError, fmt.Errorf("no active identity configured"))
	}
	pub, err := nostr.GetPublicKey(s.privateKey)
	if err != nil {
		return errors.New(errors.NoActiveIdentityError, fmt.Errorf("invalid identity key: %v", err))
	}
	ev.PubKey = pub
	return ev.Sign(s.privateKey)
}
