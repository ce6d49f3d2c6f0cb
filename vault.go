// Package rvault implements an authenticated secret vault: an encrypted
// directory tree in which every file is sealed under a data-encryption
// key that is itself protected by envelope encryption against a
// passphrase-derived key, with an optional remote authenticator gating
// release of the envelope-wrapped key.
package rvault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rvault/rvault/internal/crypto"
	"github.com/rvault/rvault/internal/keyserver"
	"github.com/rvault/rvault/internal/logging"
	"github.com/rvault/rvault/internal/recovery"
	"github.com/rvault/rvault/internal/storage"
)

// EnvServerURL is the environment variable that provides the default
// key server URL when a caller does not supply one.
const EnvServerURL = "RVAULT_SERVER"

// Handle identifies an open file object within a single vault. It is
// only meaningful for the Vault that issued it.
type Handle uint64

// Vault is a single opened vault: its crypto state, the open file
// objects it owns, and the base directory it is rooted at. A Vault is
// not safe for concurrent use from multiple goroutines; callers that
// multiplex requests must serialize their own access.
type Vault struct {
	basePath     string
	uid          uuid.UUID
	cipher       crypto.Cipher
	crypto       *crypto.State
	serverURL    string
	files        map[Handle]*File
	nextHandle   Handle
	fromRecovery bool
	log          logging.Reporter
	closed       bool
}

func resolveReporter(r logging.Reporter) logging.Reporter {
	if r == nil {
		return logging.Noop{}
	}
	return r
}

// canonicalVaultDir validates that path exists and is a directory, and
// returns its canonical absolute form.
func canonicalVaultDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", newErr(KindBadArgument, "open", fmt.Errorf("resolve path %q: %w", path, err))
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", newErr(KindBadArgument, "open", fmt.Errorf("location %q not found: %w", path, err))
	}
	fi, err := os.Stat(real)
	if err != nil {
		return "", newErr(KindBadArgument, "open", fmt.Errorf("location %q not found: %w", path, err))
	}
	if !fi.IsDir() {
		return "", newErr(KindBadArgument, "open", fmt.Errorf("path %q is not a directory", real))
	}
	return real, nil
}

func serverURLOrEnv(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(EnvServerURL)
}

// Init creates a new vault at opts.Path. On any failure before the
// metadata file is durably written, no on-disk artifact is left behind.
func Init(ctx context.Context, opts InitOptions) (err error) {
	log := resolveReporter(opts.Reporter)

	basePath, err := canonicalVaultDir(opts.Path)
	if err != nil {
		return err
	}

	cipherID := crypto.CipherPrimary
	if opts.Cipher != "" {
		cipherID, err = crypto.CipherByName(opts.Cipher)
		if err != nil {
			return newErr(KindUnsupportedCipher, "init", err)
		}
	}

	uid, perr := uuid.Parse(opts.UIDHex)
	if perr != nil {
		return newErr(KindBadArgument, "init", fmt.Errorf("invalid uid %q: %w", opts.UIDHex, perr))
	}

	state, err := crypto.Create(cipherID)
	if err != nil {
		return newErr(KindUnsupportedCipher, "init", err)
	}
	defer state.Destroy()

	iv, err := state.GenIV()
	if err != nil {
		return newErr(KindCrypto, "init", err)
	}
	kdfParams, err := crypto.NewKDFParams()
	if err != nil {
		return newErr(KindCrypto, "init", err)
	}
	if err := state.SetPassphraseKey(opts.Passphrase, kdfParams); err != nil {
		return newErr(KindCrypto, "init", err)
	}

	var flags uint8
	if opts.NoAuth {
		flags |= storage.FlagNoAuth
	}
	hdr := &storage.Header{
		Ver:       storage.ABIVersion,
		Cipher:    cipherID,
		Flags:     flags,
		UID:       uid,
		IV:        iv,
		KDFParams: kdfParams,
	}

	if !opts.NoAuth {
		serverURL := serverURLOrEnv(opts.ServerURL)
		if serverURL == "" {
			return newErr(KindBadArgument, "init", fmt.Errorf("please specify the key server URL (-s URL or %s)", EnvServerURL))
		}
		kp, err := state.GetKey()
		if err != nil {
			return newErr(KindCrypto, "init", err)
		}
		kp = append([]byte(nil), kp...)

		if err := state.GenKey(); err != nil {
			return newErr(KindCrypto, "init", err)
		}
		ke, err := state.GetKey()
		if err != nil {
			return newErr(KindCrypto, "init", err)
		}
		wrapped, err := crypto.WrapKey(kp, ke)
		if err != nil {
			return newErr(KindCrypto, "init", err)
		}

		client, err := keyserver.New(serverURL)
		if err != nil {
			return newErr(KindBadArgument, "init", err)
		}
		if err := client.Register(ctx, uid.String(), opts.AuthParams, wrapped); err != nil {
			return newErr(KindNetwork, "init", err)
		}
		log.Info("registered vault with key server", "uid", uid.String())
	}
	// NoAuth: the key already installed by SetPassphraseKey serves
	// directly as K_e, with no envelope and no server round-trip.

	computed, err := storage.ComputeHMAC(state, hdr)
	if err != nil {
		return newErr(KindCrypto, "init", err)
	}
	hdr.HMAC = computed

	if err := storage.WriteMetadata(basePath, hdr); err != nil {
		if storage.ErrAlreadyExists(err) {
			return newErr(KindAlreadyExists, "init", err)
		}
		return newErr(KindIO, "init", err)
	}
	log.Info("vault initialized", "path", basePath)
	return nil
}

// openHeader is the shared helper behind Open and OpenByRecovery: it
// parses a metadata header and builds the matching crypto state,
// without installing a data key. The two constructors diverge only in
// how they obtain K_e afterward.
func openHeader(hdr *storage.Header) (*crypto.State, error) {
	if hdr.Ver != storage.ABIVersion {
		return nil, newErr(KindUnsupportedVersion, "open", fmt.Errorf("incompatible vault version %d", hdr.Ver))
	}
	state, err := crypto.Create(hdr.Cipher)
	if err != nil {
		return nil, newErr(KindUnsupportedCipher, "open", err)
	}
	if err := state.SetIV(hdr.IV); err != nil {
		state.Destroy()
		return nil, newErr(KindCorruptVault, "open", err)
	}
	return state, nil
}

// Open opens an existing vault at opts.Path.
func Open(ctx context.Context, opts OpenOptions) (v *Vault, err error) {
	log := resolveReporter(opts.Reporter)

	basePath, err := canonicalVaultDir(opts.Path)
	if err != nil {
		return nil, err
	}

	mapped, hdr, err := storage.ReadMetadataMmap(basePath)
	if err != nil {
		return nil, newErr(KindCorruptVault, "open", err)
	}
	defer mapped.Close()

	state, err := openHeader(hdr)
	if err != nil {
		return nil, err
	}

	noAuth := hdr.Flags&storage.FlagNoAuth != 0

	if err := state.SetPassphraseKey(opts.Passphrase, hdr.KDFParams); err != nil {
		state.Destroy()
		return nil, newErr(KindCrypto, "open", err)
	}

	if !noAuth {
		serverURL := serverURLOrEnv(opts.ServerURL)
		if serverURL == "" {
			state.Destroy()
			return nil, newErr(KindBadArgument, "open", fmt.Errorf("please specify the key server URL (-s URL or %s)", EnvServerURL))
		}
		kp, err := state.GetKey()
		if err != nil {
			state.Destroy()
			return nil, newErr(KindCrypto, "open", err)
		}
		kp = append([]byte(nil), kp...)

		client, err := keyserver.New(serverURL)
		if err != nil {
			state.Destroy()
			return nil, newErr(KindBadArgument, "open", err)
		}
		wrapped, err := client.Fetch(ctx, hdr.UID.String(), opts.TOTP)
		if err != nil {
			state.Destroy()
			return nil, newErr(KindAuthFailed, "open", err)
		}
		ke, err := crypto.UnwrapKey(kp, wrapped)
		if err != nil {
			state.Destroy()
			return nil, newErr(KindWrongPassphrase, "open", fmt.Errorf(verificationFailedMsg))
		}
		if err := state.SetKey(ke); err != nil {
			state.Destroy()
			return nil, newErr(KindCrypto, "open", err)
		}
	}
	// NoAuth: K_p installed above already serves as K_e.

	ok, err := storage.VerifyHMAC(state, hdr)
	if err != nil {
		state.Destroy()
		return nil, newErr(KindCrypto, "open", err)
	}
	if !ok {
		state.Destroy()
		return nil, newErr(KindWrongPassphrase, "open", fmt.Errorf(verificationFailedMsg))
	}

	log.Info("vault opened", "path", basePath, "uid", hdr.UID.String())
	return &Vault{
		basePath:  basePath,
		uid:       hdr.UID,
		cipher:    hdr.Cipher,
		crypto:    state,
		serverURL: opts.ServerURL,
		files:     make(map[Handle]*File),
		log:       log,
	}, nil
}

// OpenByRecovery opens a vault using a parsed recovery blob, bypassing
// the server and passphrase paths by installing K_e directly. The
// resulting vault is usable for read/write but must never be used to
// create a new server registration (Init is a free function and does
// not accept a Vault, so this is enforced structurally).
func OpenByRecovery(path string, blob []byte) (v *Vault, err error) {
	sections, err := recovery.Parse(blob)
	if err != nil {
		return nil, newErr(KindCorruptVault, "recover", err)
	}
	metaBytes, err := sections.Metadata()
	if err != nil {
		return nil, newErr(KindCorruptVault, "recover", err)
	}
	hdr, err := storage.DecodeHeader(metaBytes)
	if err != nil {
		return nil, newErr(KindCorruptVault, "recover", err)
	}

	basePath, err := canonicalVaultDir(path)
	if err != nil {
		return nil, err
	}

	state, err := openHeader(hdr)
	if err != nil {
		return nil, err
	}

	ekey, err := sections.EKey()
	if err != nil {
		state.Destroy()
		return nil, newErr(KindCorruptVault, "recover", err)
	}
	if err := state.SetKey(ekey); err != nil {
		state.Destroy()
		return nil, newErr(KindCrypto, "recover", err)
	}

	return &Vault{
		basePath:     basePath,
		uid:          hdr.UID,
		cipher:       hdr.Cipher,
		crypto:       state,
		files:        make(map[Handle]*File),
		fromRecovery: true,
		log:          logging.Noop{},
	}, nil
}

// FromRecovery reports whether v was opened via OpenByRecovery.
func (v *Vault) FromRecovery() bool { return v.fromRecovery }

// UID returns the vault's identifier.
func (v *Vault) UID() uuid.UUID { return v.uid }

// Close closes every open file object, then destroys the vault's key
// material. It is idempotent; calling it more than once is safe but a
// caller must not otherwise use the Vault afterward.
func (v *Vault) Close() error {
	if v.closed {
		return nil
	}
	for _, f := range v.files {
		_ = f.closeLocked()
	}
	v.files = nil
	v.crypto.Destroy()
	v.basePath = ""
	v.closed = true
	return nil
}
