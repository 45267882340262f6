package backend

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Keyer generates the storage keys used by the layout stores.
type Keyer interface {
	// PageKey is the key of a single page's layout set (local mode).
	PageKey(pageID string) string
	// RegistryKey is the key of the shared page registry blob.
	RegistryKey() string
	// ViewModeKey is the key of the shared session breakpoint.
	ViewModeKey() string
}

// DefaultKeyer produces the key names used by the browser dashboard, so
// a blob exported from local storage can be imported unchanged.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// PageKey returns "<page>-layout".
func (DefaultKeyer) PageKey(pageID string) string { return pageID + "-layout" }

// RegistryKey returns "layoutConfigs".
func (DefaultKeyer) RegistryKey() string { return "layoutConfigs" }

// ViewModeKey returns "globalViewMode".
func (DefaultKeyer) ViewModeKey() string { return "globalViewMode" }

// ScopedKeyer wraps a Keyer with a prefix so several users or sessions can
// share one backend without seeing each other's layouts.
//
//	alice := NewScopedKeyer(nil, "user:alice:")
//	alice.RegistryKey() // "user:alice:layoutConfigs"
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer selects the DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// PageKey returns the prefixed page key.
func (k *ScopedKeyer) PageKey(pageID string) string { return k.prefix + k.inner.PageKey(pageID) }

// RegistryKey returns the prefixed registry key.
func (k *ScopedKeyer) RegistryKey() string { return k.prefix + k.inner.RegistryKey() }

// ViewModeKey returns the prefixed view mode key.
func (k *ScopedKeyer) ViewModeKey() string { return k.prefix + k.inner.ViewModeKey() }
