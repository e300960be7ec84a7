package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateInviteCode()
		require.NoError(t, err)
		require.Len(t, code, InviteCodeLength)
		for _, ch := range code {
			require.True(t, strings.ContainsRune(codeAlphabet, ch), "unexpected character %q", ch)
		}
		require.False(t, seen[code], "duplicate code generated")
		seen[code] = true
	}
}

func TestCodeAlphabetExcludesAmbiguous(t *testing.T) {
	for _, ch := range "0O1I" {
		require.False(t, strings.ContainsRune(codeAlphabet, ch))
	}
}
