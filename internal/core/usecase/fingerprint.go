package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

// Fingerprint keys the response cache by the normalized question and the last
// turn of the conversation it was asked in.
func Fingerprint(query string, history []domain.ConversationTurn) string {
	lastTurn := ""
	if len(history) > 0 {
		last := history[len(history)-1]
		sum := sha256.Sum256([]byte(last.Role + "\x00" + last.Text))
		lastTurn = hex.EncodeToString(sum[:])
	}
	sum := sha256.Sum256([]byte(normalizeQuery(query) + "|" + lastTurn))
	return hex.EncodeToString(sum[:])
}

func normalizeQuery(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

// matchKeywords returns the configured keywords present in text. Single words
// match whole tokens; phrases match the normalized text.
func matchKeywords(text string, keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}
	tokens := toTokenSet(text)
	normalized := " " + strings.Join(splitAlphaNumLower(text), " ") + " "

	matched := make([]string, 0)
	for _, keyword := range keywords {
		parts := splitAlphaNumLower(keyword)
		switch len(parts) {
		case 0:
			continue
		case 1:
			if _, ok := tokens[parts[0]]; ok {
				matched = append(matched, keyword)
			}
		default:
			if strings.Contains(normalized, " "+strings.Join(parts, " ")+" ") {
				matched = append(matched, keyword)
			}
		}
	}
	return matched
}
