package orders

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Alfabet tanpa 0/O/1/I biar enak dibaca di invoice & telepon CS.
const numberAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const numberSuffixLen = 6

// GenerateOrderNumber: "ORD-20260830-X7K2QF". Collision secara praktis
// mustahil, tapi caller tetap wajib cek + retry terbatas.
func GenerateOrderNumber(prefix string, now time.Time) (string, error) {
	b := make([]byte, numberSuffixLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("order number entropy: %w", err)
	}
	for i := range b {
		b[i] = numberAlphabet[int(b[i])%len(numberAlphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), string(b)), nil
}
