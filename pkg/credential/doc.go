// Package credential resolves the password hash of the invoking user and checks typed passwords
// against it.
//
// The hash is read from the passwd database, following the "x" indirection to the shadow
// database. Hashes use the crypt(3) format; md5-crypt, sha256-crypt, sha512-crypt and bcrypt are
// verified in Go. When built with cgo, yescrypt and every other scheme go to the system's
// crypt_r; the nolibcrypt tag leaves only the schemes verified in Go.
package credential
