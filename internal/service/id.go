package service

import (
	"math/rand/v2"
)

// Short ids are base62 renderings of a number in [minShortID, maxShortID),
// which keeps them between 5 and 8 characters.
const (
	minShortID = 15_000_000
	maxShortID = 3_500_000_000_000
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// encodeBase62 renders n with base62Alphabet, most significant digit first.
func encodeBase62(n uint64) string {
	if n == 0 {
		return "0"
	}

	var buf [11]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = base62Alphabet[n%62]
		n /= 62
	}
	return string(buf[i:])
}

func randomShortID() string {
	return encodeBase62(uint64(minShortID + rand.Int64N(maxShortID-minShortID)))
}
