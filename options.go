package rvault

import "github.com/rvault/rvault/internal/logging"

// InitOptions configures a new vault. Path must already exist as a
// directory; ServerURL, if empty, falls back to RVAULT_SERVER unless
// NoAuth is set. AuthParams is opaque server-side setup material (for
// example a base32 TOTP secret) forwarded verbatim during registration.
type InitOptions struct {
	Path       string
	ServerURL  string
	Passphrase string
	UIDHex     string
	Cipher     string // empty selects the build-time default
	NoAuth     bool
	AuthParams string
	Reporter   logging.Reporter
}

// OpenOptions configures opening an existing vault. TOTP is required
// unless the vault was created with NoAuth.
type OpenOptions struct {
	Path       string
	ServerURL  string
	Passphrase string
	TOTP       string
	Reporter   logging.Reporter
}
