// ABOUTME: Deterministic answer generation for the stub backend.
// ABOUTME: Picks a model tier from simple query heuristics and writes markdown for each stage.
package stub

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/2389-research/modelselector/workflow"
)

// Tier is the class of model the stub claims to have selected.
type Tier string

const (
	TierSmall  Tier = "small"
	TierMedium Tier = "medium"
	TierLarge  Tier = "large"
)

// heavyWords push a query towards a larger model.
var heavyWords = []string{
	"analyze", "code", "debug", "design", "optimize", "predict", "prove",
	"refactor", "research", "strategy", "write",
}

// lightWords suit a small model.
var lightWords = []string{
	"classify", "detect", "extract", "format", "summarize", "tag", "translate",
}

// SelectTier chooses a tier for query. Longer queries and heavy verbs win
// over light verbs.
func SelectTier(query string) Tier {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	score := 0
	for _, w := range words {
		for _, h := range heavyWords {
			if strings.HasPrefix(w, h) {
				score += 2
			}
		}
		for _, l := range lightWords {
			if strings.HasPrefix(w, l) {
				score--
			}
		}
	}
	if len(words) > 20 {
		score += 2
	}

	switch {
	case score >= 2:
		return TierLarge
	case score <= -1:
		return TierSmall
	default:
		return TierMedium
	}
}

// Respond builds the stage outputs for query.
func Respond(query string) workflow.Result {
	tier := SelectTier(query)
	return workflow.Result{
		Plan:     fmt.Sprintf("1. Read the task: **%s**\n2. Estimate how much reasoning it needs\n3. Route it to the cheapest model that can do it well", query),
		Think:    fmt.Sprintf("The task looks like a *%s* workload. %s", tier, rationale(tier)),
		Response: fmt.Sprintf("Selected a **%s** model for: %s", tier, query),
	}
}

func rationale(t Tier) string {
	switch t {
	case TierSmall:
		return "It is mostly pattern matching, so a small fast model keeps cost down."
	case TierLarge:
		return "It needs multi-step reasoning, so the extra cost of a large model pays off."
	default:
		return "A mid-sized model balances quality and cost here."
	}
}
