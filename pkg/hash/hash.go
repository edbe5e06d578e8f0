// Package hash implements the pluggable hash dispatcher: a registry of
// 32-bit hash families selectable by id and persisted in the header. It
// mirrors the legacy mdbm family roster (CRC32, EJB, PHONG, OZ, TOREK,
// FNV32, STL, MD5, SHA-1, Jenkins, Hsieh) plus one ecosystem-backed bonus
// family. Where the family is a well-known algorithm with a standard
// library implementation, we delegate to it (hash/crc32, hash/fnv,
// crypto/md5, crypto/sha1); the legacy, pre-standard-library families
// (EJB/PHONG/OZ/TOREK/STL/Jenkins/Hsieh) are hand-rolled the way the
// original C implementation rolls them, since no published Go module
// implements these particular named functions.
package hash

import (
	"crypto/md5"
	"crypto/sha1"
	"hash/crc32"
	"hash/fnv"

	"github.com/cespare/xxhash/v2"
)

// ID identifies a hash family; persisted in the header and immutable for
// the life of a non-empty database.
type ID uint16

const (
	CRC32 ID = iota
	EJB
	PHONG
	OZ
	TOREK
	FNV32
	STL
	MD5
	SHA1
	Jenkins
	Hsieh
	XXHash // bonus family beyond the legacy roster, not selectable by id collision
)

var names = map[ID]string{
	CRC32:   "CRC32",
	EJB:     "EJB",
	PHONG:   "PHONG",
	OZ:      "OZ",
	TOREK:   "TOREK",
	FNV32:   "FNV32",
	STL:     "STL",
	MD5:     "MD5",
	SHA1:    "SHA1",
	Jenkins: "JENKINS",
	Hsieh:   "HSIEH",
	XXHash:  "XXHASH",
}

// Name returns the family's persisted name, used by `config`/`check` output.
func Name(id ID) string {
	if n, ok := names[id]; ok {
		return n
	}
	return "UNKNOWN"
}

// Func is a 32-bit hash function over a key.
type Func func(key []byte) uint32

// Lookup returns the hash function for a family id.
func Lookup(id ID) Func {
	switch id {
	case CRC32:
		return hashCRC32
	case EJB:
		return hashEJB
	case PHONG:
		return hashPHONG
	case OZ:
		return hashOZ
	case TOREK:
		return hashTOREK
	case FNV32:
		return hashFNV32
	case STL:
		return hashSTL
	case MD5:
		return hashMD5
	case SHA1:
		return hashSHA1
	case Jenkins:
		return hashJenkins
	case Hsieh:
		return hashHsieh
	case XXHash:
		return hashXXHash
	default:
		return hashCRC32
	}
}

func hashCRC32(key []byte) uint32 {
	return crc32.ChecksumIEEE(key)
}

// hashEJB is Justin Sobel's bitwise hash (the "EJB" family in the legacy
// roster): a rolling multiply-xor-shift accumulator.
func hashEJB(key []byte) uint32 {
	var h uint32 = 0
	for _, b := range key {
		h = (h << 5) ^ (h >> 2) ^ uint32(b)
	}
	return h
}

// hashPHONG is Phong Vo's hash: a simple polynomial accumulator with an
// odd multiplier, as used by the original mdbm PHONG family.
func hashPHONG(key []byte) uint32 {
	var h uint32 = 0
	for _, b := range key {
		h = h*33 + uint32(b)
	}
	return h
}

// hashOZ is a variant polynomial accumulator ("OZ's hash" in the legacy
// roster) using a different multiplier/rotation than PHONG.
func hashOZ(key []byte) uint32 {
	var h uint32 = 0
	for _, b := range key {
		h = (h << 4) + uint32(b) + (h >> 28)
	}
	return h
}

// hashTOREK is Chris Torek's hash, as popularized in the 4.4BSD db
// library: 33*h + c with an extra additive term.
func hashTOREK(key []byte) uint32 {
	var h uint32 = 0
	for _, b := range key {
		h = h*33 + uint32(b) + (h >> 27)
	}
	return h
}

func hashFNV32(key []byte) uint32 {
	h := fnv.New32a()
	h.Write(key)
	return h.Sum32()
}

// hashSTL mirrors the multiplicative string hash historically used by
// libstdc++'s hash<string> specialization.
func hashSTL(key []byte) uint32 {
	var h uint32 = 0
	for _, b := range key {
		h = 5*h + uint32(b)
	}
	return h
}

func hashMD5(key []byte) uint32 {
	sum := md5.Sum(key)
	return uint32(sum[0]) | uint32(sum[1])<<8 | uint32(sum[2])<<16 | uint32(sum[3])<<24
}

func hashSHA1(key []byte) uint32 {
	sum := sha1.Sum(key)
	return uint32(sum[0]) | uint32(sum[1])<<8 | uint32(sum[2])<<16 | uint32(sum[3])<<24
}

// hashJenkins is Bob Jenkins' one-at-a-time hash.
func hashJenkins(key []byte) uint32 {
	var h uint32 = 0
	for _, b := range key {
		h += uint32(b)
		h += h << 10
		h ^= h >> 6
	}
	h += h << 3
	h ^= h >> 11
	h += h << 15
	return h
}

// hashHsieh is Paul Hsieh's SuperFastHash.
func hashHsieh(key []byte) uint32 {
	length := len(key)
	if length == 0 {
		return 0
	}
	var h uint32 = uint32(length)
	rem := length & 3
	main := length &^ 3

	i := 0
	for ; i < main; i += 4 {
		h += uint32(key[i]) | uint32(key[i+1])<<8
		tmp := (uint32(key[i+2])|uint32(key[i+3])<<8)<<11 ^ h
		h = (h << 16) ^ tmp
		h += h >> 11
	}

	switch rem {
	case 3:
		h += uint32(key[i]) | uint32(key[i+1])<<8
		h ^= h << 16
		h ^= uint32(key[i+2]) << 18
		h += h >> 11
	case 2:
		h += uint32(key[i]) | uint32(key[i+1])<<8
		h ^= h << 11
		h += h >> 17
	case 1:
		h += uint32(key[i])
		h ^= h << 10
		h += h >> 1
	}

	h ^= h << 3
	h += h >> 5
	h ^= h << 4
	h += h >> 17
	h ^= h << 25
	h += h >> 6
	return h
}

func hashXXHash(key []byte) uint32 {
	return uint32(xxhash.Sum64(key))
}
