package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// DefaultNamespace scopes every breadcrumb key in a shared store.
const DefaultNamespace = "breadcrumb"

// KeyScheme selects which page attribute addresses a record.
//
// A deployment must stick to one scheme: switching schemes strands every
// entry written under the other one until it expires or is invalidated.
type KeyScheme int

const (
	// KeyByTitle keys records by canonical page title.
	KeyByTitle KeyScheme = iota
	// KeyByID keys records by the host's stable page identity.
	KeyByID
)

// String returns the configuration name of the scheme.
func (s KeyScheme) String() string {
	switch s {
	case KeyByTitle:
		return "title"
	case KeyByID:
		return "id"
	default:
		return "unknown"
	}
}

// ParseKeyScheme parses a configuration name. Empty means KeyByTitle.
func ParseKeyScheme(s string) (KeyScheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "title":
		return KeyByTitle, nil
	case "id", "identity":
		return KeyByID, nil
	default:
		return KeyByTitle, fmt.Errorf("cache: unknown key scheme %q", s)
	}
}

// Keyer derives store keys for pages.
//
// Contract:
// - Determinism: the same value must always produce the same key.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Scheme reports whether Key expects a title or an identity.
	Scheme() KeyScheme

	// Key derives the store key from a canonical title or a page identity.
	Key(value string) (string, error)
}

// PageKeyer is the default Keyer.
//
// Title keys have the form <namespace>:title:<hash> where hash is the first
// 32 hex characters of SHA-256(title). Identity keys have the form
// <namespace>:id:<identity>.
type PageKeyer struct {
	namespace string
	scheme    KeyScheme
}

// NewPageKeyer creates a keyer. An empty namespace means DefaultNamespace.
func NewPageKeyer(namespace string, scheme KeyScheme) *PageKeyer {
	if strings.TrimSpace(namespace) == "" {
		namespace = DefaultNamespace
	}
	return &PageKeyer{namespace: namespace, scheme: scheme}
}

// Scheme returns the keyer's scheme.
func (k *PageKeyer) Scheme() KeyScheme {
	return k.scheme
}

// Prefix returns the namespace prefix shared by every key this keyer emits.
func (k *PageKeyer) Prefix() string {
	return k.namespace + ":"
}

// Key derives the store key for value.
func (k *PageKeyer) Key(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", ErrInvalidKey
	}

	var key string
	switch k.scheme {
	case KeyByID:
		key = fmt.Sprintf("%s:id:%s", k.namespace, value)
	default:
		hash := sha256.Sum256([]byte(value))
		key = fmt.Sprintf("%s:title:%s", k.namespace, hex.EncodeToString(hash[:16]))
	}

	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// Ensure PageKeyer implements Keyer
var _ Keyer = (*PageKeyer)(nil)
