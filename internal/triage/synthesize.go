package triage

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"mailpilot/internal/models"
	"mailpilot/internal/services"
)

// NoSuggestedResponseMessage is returned when no stored responses exist to
// base a reply on.
const NoSuggestedResponseMessage = "No suggested response available."

// NamePlaceholder is the literal token substituted during personalization.
const NamePlaceholder = "[Nombre]"

// DefaultResponseMaxTokens bounds the generated reply length.
const DefaultResponseMaxTokens = 850

// Synthesizer produces the final reply text. It prefers the generative
// provider and falls back to frequency-based template selection with name
// personalization on any provider failure.
type Synthesizer struct {
	completion services.CompletionService
	maxTokens  int
}

func NewSynthesizer(completion services.CompletionService, maxTokens int) *Synthesizer {
	if maxTokens <= 0 {
		maxTokens = DefaultResponseMaxTokens
	}
	return &Synthesizer{completion: completion, maxTokens: maxTokens}
}

// Synthesize returns the reply for the given email based on the candidate
// responses extracted from its nearest neighbors. It never fails: provider
// errors degrade to the deterministic fallback.
func (s *Synthesizer) Synthesize(ctx context.Context, q models.EmailQuery, candidates []string) string {
	if len(candidates) == 0 || s.completion == nil {
		return FallbackResponse(candidates, q.Sender)
	}

	messages := []services.ChatMessage{
		{Role: services.ChatMessageRoleUser, Content: BuildResponsePrompt(q, candidates)},
	}
	reply, err := s.completion.GenerateChatCompletion(ctx, messages, s.maxTokens)
	if err != nil {
		log.Warnf("Generative reply failed, using fallback: %v", err)
		return FallbackResponse(candidates, q.Sender)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		log.Warn("Generative reply was empty, using fallback")
		return FallbackResponse(candidates, q.Sender)
	}
	return reply
}

// BuildResponsePrompt lists the candidate responses as numbered examples and
// asks for a fresh reply in the same style.
func BuildResponsePrompt(q models.EmailQuery, candidates []string) string {
	var sb strings.Builder
	sb.WriteString("You draft replies to business emails. Here are responses previously sent for similar emails:\n\n")
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c)
	}
	fmt.Fprintf(&sb, "\nNow write a new reply, in an equivalent style, to this email:\n\nFrom: %s\nSubject: %s\n\n%s\n\n", q.Sender, q.Subject, q.Content)
	sb.WriteString("Format the reply as a plain email. Do not include decorative symbols.")
	return sb.String()
}

// FallbackResponse is the deterministic path: with more than three candidates
// it picks the most frequently occurring exact text (first-encountered-max on
// ties), otherwise the first candidate, then applies name personalization.
func FallbackResponse(candidates []string, sender string) string {
	if len(candidates) == 0 {
		return NoSuggestedResponseMessage
	}

	base := candidates[0]
	if len(candidates) > 3 {
		base = mostFrequentCandidate(candidates)
	}
	return personalize(base, sender)
}

// mostFrequentCandidate counts exact-text occurrences and returns the first
// candidate (in list order) to reach the maximum count.
func mostFrequentCandidate(candidates []string) string {
	counts := make(map[string]int, len(candidates))
	for _, c := range candidates {
		counts[c]++
	}
	best := candidates[0]
	bestCount := 0
	for _, c := range candidates {
		if counts[c] > bestCount {
			best = c
			bestCount = counts[c]
		}
	}
	return best
}

// personalize substitutes the sender's first name for the placeholder token.
// It is a pure string heuristic, not address validation: senders that do not
// look like email addresses, or whose local part has no first.last shape,
// leave the text untouched.
func personalize(text, sender string) string {
	name, ok := firstNameFromSender(sender)
	if !ok {
		return text
	}
	return strings.ReplaceAll(text, NamePlaceholder, name)
}

// firstNameFromSender extracts a capitalized first name from senders shaped
// like "first.last@domain".
func firstNameFromSender(sender string) (string, bool) {
	looksLikeAddress := strings.Contains(sender, "@") ||
		strings.Contains(sender, ".com") ||
		strings.Contains(sender, ".mx")
	if !looksLikeAddress {
		return "", false
	}

	local := sender
	if at := strings.Index(sender, "@"); at >= 0 {
		local = sender[:at]
	}
	dot := strings.Index(local, ".")
	if dot <= 0 {
		return "", false
	}
	return capitalize(local[:dot]), true
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
