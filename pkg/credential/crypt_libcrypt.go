//go:build cgo && !nolibcrypt

package credential

/*
#cgo LDFLAGS: -lcrypt
#include <crypt.h>
#include <stdlib.h>
#include <string.h>
*/
import "C"

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"unsafe"
)

func init() {
	schemes = append(schemes,
		scheme{name: "yescrypt", prefixes: []string{"$y$"}, verify: verifyLibcrypt},
		scheme{name: "gost-yescrypt", prefixes: []string{"$gy$"}, verify: verifyLibcrypt},
		scheme{name: "scrypt", prefixes: []string{"$7$"}, verify: verifyLibcrypt},
	)
	fallbackScheme = &scheme{
		name:   "libcrypt",
		verify: verifyLibcrypt,
	}
}

func verifyLibcrypt(hash string, password []byte) (bool, error) {
	data := (*C.struct_crypt_data)(C.calloc(1, C.sizeof_struct_crypt_data))
	if data == nil {
		return false, errors.New("crypt_r: out of memory")
	}
	defer func() {
		C.memset(unsafe.Pointer(data), 0, C.sizeof_struct_crypt_data)
		C.free(unsafe.Pointer(data))
	}()

	phraseLen := C.size_t(len(password) + 1)
	phrase := (*C.char)(C.calloc(phraseLen, 1))
	if phrase == nil {
		return false, errors.New("crypt_r: out of memory")
	}
	defer func() {
		C.memset(unsafe.Pointer(phrase), 0, phraseLen)
		C.free(unsafe.Pointer(phrase))
	}()
	if len(password) > 0 {
		C.memcpy(unsafe.Pointer(phrase), unsafe.Pointer(&password[0]), C.size_t(len(password)))
	}

	setting := C.CString(hash)
	defer C.free(unsafe.Pointer(setting))

	out, err := C.crypt_r(phrase, setting, data)
	if out == nil {
		return false, fmt.Errorf("crypt_r: %w", err)
	}

	result := C.GoString(out)
	// libxcrypt signals failure with a short string starting with '*'.
	if result == "" || result[0] == '*' {
		return false, fmt.Errorf("crypt_r: cannot hash with setting %s", schemeID(hash))
	}

	return subtle.ConstantTimeCompare([]byte(result), []byte(hash)) == 1, nil
}
