package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// memberColors matches the palette users are assigned at signup.
var memberColors = []string{
	"bg-blue-500",
	"bg-green-500",
	"bg-red-500",
	"bg-yellow-500",
	"bg-pink-500",
	"bg-purple-500",
	"bg-indigo-500",
	"bg-gray-500",
}

// GenerateInviteCode returns a short random code derived from a UUID with
// the dashes stripped, truncated to length (max 32).
func GenerateInviteCode(length int) string {
	code := strings.ReplaceAll(uuid.NewString(), "-", "")
	if length > 0 && length < len(code) {
		return code[:length]
	}
	return code
}

// RandomColor picks a member color for new users.
func RandomColor() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(memberColors))))
	if err != nil {
		return memberColors[0]
	}
	return memberColors[n.Int64()]
}

// AvatarFor derives the default avatar from a display name: its first
// letter, upper-cased.
func AvatarFor(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "?"
	}
	r := []rune(trimmed)[0]
	return string(unicode.ToUpper(r))
}
