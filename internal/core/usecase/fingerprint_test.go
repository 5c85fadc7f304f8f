package usecase

import (
	"fmt"
	"testing"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

func TestFingerprintNormalizesQueryText(t *testing.T) {
	a := Fingerprint("How to create a leave request?", nil)
	b := Fingerprint("  how TO create\ta leave   request? ", nil)
	if a != b {
		t.Fatalf("expected equal fingerprints for normalized text")
	}
}

func TestFingerprintDependsOnLastTurn(t *testing.T) {
	history := []domain.ConversationTurn{{Role: domain.RoleAssistant, Text: "You have 12 days."}}
	other := []domain.ConversationTurn{{Role: domain.RoleAssistant, Text: "You have 10 days."}}

	if Fingerprint("and sick leave?", history) == Fingerprint("and sick leave?", other) {
		t.Fatalf("different context must produce different fingerprints")
	}
	if Fingerprint("and sick leave?", history) != Fingerprint("and sick leave?", append([]domain.ConversationTurn{{Role: domain.RoleUser, Text: "older"}}, history...)) {
		t.Fatalf("only the last turn contributes to the fingerprint")
	}
}

func TestMatchKeywords(t *testing.T) {
	keywords := []string{"harassment", "Pelecehan", "file a complaint", "resign"}
	cases := []struct {
		text string
		want string
	}{
		{"I want to report HARASSMENT.", "[harassment]"},
		{"Saya mengalami pelecehan di kantor", "[Pelecehan]"},
		{"How do I file a complaint about pay?", "[file a complaint]"},
		{"Where is the resignation form?", "[]"},
	}
	for _, tc := range cases {
		if got := fmt.Sprint(matchKeywords(tc.text, keywords)); got != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.text, tc.want, got)
		}
	}
}
