package models

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTitleFromMessage(t *testing.T) {
	assert.Equal(t, "Bought AAPL at 178.50", TitleFromMessage("  Bought AAPL at 178.50  "))
	assert.Equal(t, DefaultChatTitle, TitleFromMessage("   "))

	long := strings.Repeat("a", 80)
	assert.Equal(t, strings.Repeat("a", 50), TitleFromMessage(long))
}

func TestTitleFromMessageKeepsRunesIntact(t *testing.T) {
	// 60 two-byte runes: a byte-indexed cut would land mid-rune.
	msg := strings.Repeat("é", 60)

	title := TitleFromMessage(msg)
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, 50, utf8.RuneCountInString(title))
	assert.Equal(t, strings.Repeat("é", 50), title)
}

func TestMessageTemporary(t *testing.T) {
	assert.True(t, Message{ID: TempIDPrefix + "abc"}.Temporary())
	assert.False(t, Message{ID: "m1"}.Temporary())
}
