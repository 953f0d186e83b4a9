// Package secret provides the bounded buffer that holds a password while it is being typed.
//
// The buffer lives outside the Go heap in an anonymous mapping that is locked into RAM (mlock)
// and excluded from core dumps (MADV_DONTDUMP). Its contents are zeroed whenever it is cleared
// and before the mapping is released, so a typed password never outlives the attempt it belongs
// to.
package secret
