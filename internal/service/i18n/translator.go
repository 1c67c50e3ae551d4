package i18n

import (
	"fmt"

	"golang.org/x/text/language"
)

// Message keys used by the match engine and tournament progression.
const (
	KeyMatchFinished       = "match_finished"
	KeyWalkover            = "walkover"
	KeyPaused              = "paused"
	KeyResumed             = "resumed"
	KeyCountdown           = "countdown"
	KeyTournamentCompleted = "tournament_completed"
	KeyNextMatchReady      = "next_match_ready"
)

// supported mirrors the languages the original frontend ships locales for.
var supported = []language.Tag{
	language.Portuguese, // default
	language.English,
	language.Spanish,
}

var matcher = language.NewMatcher(supported)

var catalogs = map[language.Tag]map[string]string{
	language.Portuguese: {
		KeyMatchFinished:       "%s venceu a partida contra %s!",
		KeyWalkover:            "%s venceu por W.O., %s abandonou a partida.",
		KeyPaused:              "A partida foi pausada.",
		KeyResumed:             "A partida foi retomada.",
		KeyCountdown:           "A partida começa em %d...",
		KeyTournamentCompleted: "O torneio '%s' foi finalizado. Vencedor: %s!",
		KeyNextMatchReady:      "A próxima partida do torneio foi iniciada automaticamente.",
	},
	language.English: {
		KeyMatchFinished:       "%s won the match against %s!",
		KeyWalkover:            "%s won by walkover, %s abandoned the match.",
		KeyPaused:              "The match has been paused.",
		KeyResumed:             "The match has been resumed.",
		KeyCountdown:           "The match starts in %d...",
		KeyTournamentCompleted: "Tournament '%s' has finished. Winner: %s!",
		KeyNextMatchReady:      "The next tournament match has started automatically.",
	},
	language.Spanish: {
		KeyMatchFinished:       "¡%s ganó la partida contra %s!",
		KeyWalkover:            "%s ganó por W.O., %s abandonó la partida.",
		KeyPaused:              "La partida ha sido pausada.",
		KeyResumed:             "La partida ha sido reanudada.",
		KeyCountdown:           "La partida comienza en %d...",
		KeyTournamentCompleted: "El torneo '%s' ha finalizado. ¡Ganador: %s!",
		KeyNextMatchReady:      "La siguiente partida del torneo ha comenzado automáticamente.",
	},
}

// Translate renders a message key in the closest supported language.
// Unknown or empty language codes fall back to Portuguese.
func Translate(lang, key string, args ...interface{}) string {
	desired, err := language.Parse(lang)
	if err != nil {
		desired = language.Portuguese
	}
	_, index, _ := matcher.Match(desired)
	catalog := catalogs[supported[index]]
	format, ok := catalog[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
