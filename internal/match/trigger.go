package match

import (
	"github.com/danielpatrickdp/rulecard-match/internal/features"
	"github.com/danielpatrickdp/rulecard-match/internal/rulecard"
)

// #region fires
// Fires reports whether card's trigger intersects tokens and returns the
// intersection in the card's trigger order. A card that does not fire never
// reaches the scorer.
func Fires(card rulecard.RuleCard, tokens features.TokenSet) (bool, []string) {
	var fired []string
	for i, t := range card.Trigger {
		if !tokens.Contains(t) || seenBefore(card.Trigger, i) {
			continue
		}
		fired = append(fired, t)
	}
	return len(fired) > 0, fired
}

// seenBefore reports whether list[i] already occurs in list[:i].
func seenBefore(list []string, i int) bool {
	for _, v := range list[:i] {
		if v == list[i] {
			return true
		}
	}
	return false
}

// #endregion fires
