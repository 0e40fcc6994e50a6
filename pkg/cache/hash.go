package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash"
)

// hashKey builds "prefix:<sha256>" from the JSON encoding of parts.
func hashKey(prefix string, parts ...any) string {
	h := sha256.New()
	_ = json.NewEncoder(h).Encode(parts)
	return prefix + ":" + digest(h)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashPixels returns the hex SHA-256 of an image's dimensions followed by
// its pixel bytes. Pixels are streamed into the hash, so large sources are
// never copied.
func HashPixels(width, height int, pix []byte) string {
	h := sha256.New()
	var dims [16]byte
	binary.BigEndian.PutUint64(dims[:8], uint64(width))
	binary.BigEndian.PutUint64(dims[8:], uint64(height))
	h.Write(dims[:])
	h.Write(pix)
	return digest(h)
}

func digest(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
