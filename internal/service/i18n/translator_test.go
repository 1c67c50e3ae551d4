package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateSupportedLanguages(t *testing.T) {
	assert.Equal(t, "The match has been paused.", Translate("en", KeyPaused))
	assert.Equal(t, "A partida foi pausada.", Translate("pt", KeyPaused))
	assert.Equal(t, "La partida ha sido pausada.", Translate("es", KeyPaused))
}

func TestTranslateRegionalVariantMatches(t *testing.T) {
	assert.Equal(t, "A partida foi pausada.", Translate("pt-BR", KeyPaused))
	assert.Equal(t, "The match has been paused.", Translate("en-US", KeyPaused))
}

func TestTranslateFallsBackToDefault(t *testing.T) {
	assert.Equal(t, "A partida foi pausada.", Translate("", KeyPaused))
	assert.Equal(t, "A partida foi pausada.", Translate("not-a-tag", KeyPaused))
}

func TestTranslateFormatsArguments(t *testing.T) {
	got := Translate("en", KeyMatchFinished, "Alice", "Bob")
	assert.Equal(t, "Alice won the match against Bob!", got)

	assert.Equal(t, "The match starts in 3...", Translate("en", KeyCountdown, 3))
}

func TestTranslateUnknownKeyReturnsKey(t *testing.T) {
	assert.Equal(t, "nope", Translate("en", "nope"))
}
