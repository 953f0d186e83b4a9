package credential

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"github.com/GehirnInc/crypt"
	_ "github.com/GehirnInc/crypt/md5_crypt"
	_ "github.com/GehirnInc/crypt/sha256_crypt"
	_ "github.com/GehirnInc/crypt/sha512_crypt"
	"golang.org/x/crypto/bcrypt"
	"log/slog"
	"strings"
)

var (
	// ErrUnusableHash is returned for accounts that are locked or have no password.
	ErrUnusableHash = errors.New("account has no usable password hash")

	// ErrUnsupportedHash is returned for hash schemes that cannot be verified.
	ErrUnsupportedHash = errors.New("unsupported password hash scheme")

	// ErrEmptyPasswordAccepted is returned by SelfCheck when the hash matches an empty password.
	ErrEmptyPasswordAccepted = errors.New("password hash matches the empty password")
)

// verifyFunc checks password against hash. A mismatch is reported as (false, nil).
type verifyFunc func(hash string, password []byte) (bool, error)

type scheme struct {
	name     string
	prefixes []string
	verify   verifyFunc
}

var schemes = []scheme{
	{name: "md5-crypt", prefixes: []string{"$1$"}, verify: verifyCrypt},
	{name: "sha256-crypt", prefixes: []string{"$5$"}, verify: verifySHACrypt},
	{name: "sha512-crypt", prefixes: []string{"$6$"}, verify: verifySHACrypt},
	{name: "bcrypt", prefixes: []string{"$2a$", "$2b$", "$2y$"}, verify: verifyBcrypt},
}

// fallbackScheme handles hashes no entry in schemes recognizes. It is set when built with cgo,
// unless the nolibcrypt tag is given.
var fallbackScheme *scheme

// Hash is a password hash in crypt(3) format. It is immutable.
type Hash struct {
	value  string
	scheme *scheme
}

// NewHash wraps a crypt(3) hash string.
func NewHash(value string) (*Hash, error) {
	if value == "" || value[0] == '!' || value[0] == '*' {
		return nil, ErrUnusableHash
	}

	for i := range schemes {
		for _, prefix := range schemes[i].prefixes {
			if strings.HasPrefix(value, prefix) {
				return &Hash{value: value, scheme: &schemes[i]}, nil
			}
		}
	}

	if fallbackScheme != nil {
		return &Hash{value: value, scheme: fallbackScheme}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedHash, schemeID(value))
}

// Scheme returns the name of the hash algorithm.
func (h *Hash) Scheme() string {
	return h.scheme.name
}

// Verify reports whether password hashes to h.
// An error means the hash could not be computed; the password must then be treated as wrong.
func (h *Hash) Verify(password []byte) (bool, error) {
	ok, err := h.scheme.verify(h.value, password)
	if err != nil {
		return false, fmt.Errorf("%s: %w", h.scheme.name, err)
	}
	return ok, nil
}

// SelfCheck hashes the empty password once. It fails when the hash cannot be computed at all,
// which would make unlocking impossible, or when the empty password matches.
func (h *Hash) SelfCheck() error {
	ok, err := h.Verify(nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrEmptyPasswordAccepted
	}
	return nil
}

// LogValue keeps the hash itself out of logs.
func (h *Hash) LogValue() slog.Value {
	return slog.StringValue(h.scheme.name)
}

func (h *Hash) String() string {
	return h.scheme.name
}

func verifyCrypt(hash string, password []byte) (bool, error) {
	if !crypt.IsHashSupported(hash) {
		return false, ErrUnsupportedHash
	}

	err := crypt.NewFromHash(hash).Verify(hash, password)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, crypt.ErrKeyMismatch):
		return false, nil
	default:
		return false, err
	}
}

// errMalformedHash is returned for hashes without a $id$[rounds=N$]salt$ setting.
var errMalformedHash = errors.New("malformed hash")

// verifySHACrypt hashes password with the setting of hash and compares the results.
// The hash is never passed as the salt: with an explicit rounds= field the salt would run into
// the encoded digest.
func verifySHACrypt(hash string, password []byte) (bool, error) {
	if !crypt.IsHashSupported(hash) {
		return false, ErrUnsupportedHash
	}

	end := strings.LastIndexByte(hash, '$')
	if end <= len("$5$") {
		return false, errMalformedHash
	}

	computed, err := crypt.NewFromHash(hash).Generate(password, []byte(hash[:end]))
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1, nil
}

func verifyBcrypt(hash string, password []byte) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), password)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// schemeID returns the $id$ prefix of a hash for error messages, never the hash itself.
func schemeID(hash string) string {
	if len(hash) > 1 && hash[0] == '$' {
		if end := strings.IndexByte(hash[1:], '$'); end >= 0 {
			return hash[:end+2]
		}
	}
	return "DES or unknown"
}
