package utils

import "hash/fnv"

// Fingerprint hashes the given parts into a single value. Parts are
// separated by a NUL byte so ("ab","c") and ("a","bc") cannot collide.
func Fingerprint(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
