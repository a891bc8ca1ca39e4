package marketsync

import (
	"regexp"
	"strings"

	"github.com/marketsignal/newsmatch/internal/domain"
	"github.com/marketsignal/newsmatch/internal/ports"
)

// minCleanedTitleLen is the acceptance threshold for a cleaned common-prefix
// title (spec §4.D step 2 / §8 boundary behaviors).
const minCleanedTitleLen = 10

// partialWordRE matches a trailing alphanumeric run, used to strip a
// partial word left dangling by a common-prefix cut.
var partialWordRE = regexp.MustCompile(`[A-Za-z0-9]+$`)

// trailingPunctRE matches trailing whitespace/colon/comma/dash runs.
var trailingPunctRE = regexp.MustCompile(`[\s:,-]+$`)

// lastSeparatorRE finds the last occurrence of one of : | - , in a string.
var lastSeparatorRE = regexp.MustCompile(`[:|,-]`)

// findLongestCommonPrefix returns the longest string-level prefix shared by
// every element of titles. Empty input yields "", single input yields that
// element unchanged (spec §8 boundary behaviors).
func findLongestCommonPrefix(titles []string) string {
	if len(titles) == 0 {
		return ""
	}
	prefix := titles[0]
	for _, t := range titles[1:] {
		prefix = commonPrefix(prefix, t)
		if prefix == "" {
			break
		}
	}
	return prefix
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// cleanCommonPrefix implements spec §4.D step 2's cleanup rule: if the
// prefix does not end in whitespace, strip any trailing partial-word token
// following the last of : | - , ; then trim trailing [\s:,-]+.
func cleanCommonPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}

	if !strings.HasSuffix(prefix, " ") && !strings.HasSuffix(prefix, "\t") && !strings.HasSuffix(prefix, "\n") {
		if loc := lastSeparatorIndex(prefix); loc >= 0 {
			tail := prefix[loc+1:]
			if partialWordRE.MatchString(tail) && strings.TrimSpace(tail) != "" {
				// Strip only the final alphanumeric run of the tail; any
				// earlier words after the separator are kept.
				prefix = prefix[:loc+1] + strings.TrimSuffix(tail, partialWordRE.FindString(tail))
			}
		}
	}

	return trailingPunctRE.ReplaceAllString(prefix, "")
}

func lastSeparatorIndex(s string) int {
	indices := lastSeparatorRE.FindAllStringIndex(s, -1)
	if len(indices) == 0 {
		return -1
	}
	return indices[len(indices)-1][0]
}

// deriveMarketTitle implements spec §4.D step 2 end to end: a common
// metadata.marketTitle wins outright; otherwise the cleaned common prefix
// wins if long enough, else the first contract's title; a single-contract
// group uses that contract's title; an empty group is "Unknown Market"
// (spec §8 boundary behaviors).
func deriveMarketTitle(contracts []ports.FlatContract) string {
	if len(contracts) == 0 {
		return "Unknown Market"
	}

	if title, ok := sharedMetadataTitle(contracts); ok {
		return title
	}
	if len(contracts) == 1 {
		return contracts[0].Title
	}

	titles := make([]string, len(contracts))
	for i, c := range contracts {
		titles[i] = c.Title
	}

	prefix := findLongestCommonPrefix(titles)
	cleaned := cleanCommonPrefix(prefix)
	if len(cleaned) >= minCleanedTitleLen {
		return cleaned
	}
	return titles[0]
}

func sharedMetadataTitle(contracts []ports.FlatContract) (string, bool) {
	first, ok := contracts[0].Metadata["marketTitle"]
	if !ok || first == "" {
		return "", false
	}
	for _, c := range contracts[1:] {
		v, ok := c.Metadata["marketTitle"]
		if !ok || v != first {
			return "", false
		}
	}
	return first, true
}

// extractEventTicker implements spec §4.D step 1's grouping key rule: use
// metadata.eventTicker if present, else split the contract id on '-' and
// join the first two parts; contracts with no extractable ticker form a
// singleton group keyed __ungrouped__<contractId>.
func extractEventTicker(c ports.FlatContract) string {
	if t, ok := c.Metadata["eventTicker"]; ok && t != "" {
		return t
	}

	parts := strings.Split(c.ID, "-")
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}

	return "__ungrouped__" + c.ID
}

// marketEmbeddingText is domain.Market.EmbeddingText under a package-local
// name; nothing in this package calls it, and the canonical implementation
// lives on the domain type.
func marketEmbeddingText(m domain.Market) string {
	return m.EmbeddingText()
}
