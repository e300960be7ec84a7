package utils

import (
	"crypto/rand"
	"fmt"
)

// InviteCodeLength is the number of characters in a generated invite code.
const InviteCodeLength = 12

// codeAlphabet omits 0/O/1/I so codes survive being read aloud or retyped.
// 32 characters divides 256 evenly, so byte-modulo indexing is unbiased.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateInviteCode returns a cryptographically random invite code.
func GenerateInviteCode() (string, error) {
	buf := make([]byte, InviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
