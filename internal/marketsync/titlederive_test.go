package marketsync

import (
	"testing"

	"github.com/marketsignal/newsmatch/internal/ports"
	"github.com/stretchr/testify/assert"
)

func contractTitles(titles ...string) []ports.FlatContract {
	out := make([]ports.FlatContract, len(titles))
	for i, t := range titles {
		out[i] = ports.FlatContract{ID: "c" + string(rune('0'+i))}
		out[i].Title = t
	}
	return out
}

func TestFindLongestCommonPrefix_Empty(t *testing.T) {
	assert.Equal(t, "", findLongestCommonPrefix(nil))
}

func TestFindLongestCommonPrefix_Single(t *testing.T) {
	assert.Equal(t, "Yes", findLongestCommonPrefix([]string{"Yes"}))
}

func TestDeriveMarketTitle_Empty(t *testing.T) {
	assert.Equal(t, "Unknown Market", deriveMarketTitle(nil))
}

func TestDeriveMarketTitle_CommonPrefixScenario(t *testing.T) {
	titles := []string{
		"Minnesota at Atlanta: Double Doubles: Rudy Gobert",
		"Minnesota at Atlanta: Double Doubles: Anthony Edwards",
		"Minnesota at Atlanta: Double Doubles: Jalen Johnson",
	}
	got := deriveMarketTitle(contractTitles(titles...))
	assert.Equal(t, "Minnesota at Atlanta: Double Doubles", got)
}

func TestDeriveMarketTitle_FallsBackToFirstTitle(t *testing.T) {
	got := deriveMarketTitle(contractTitles("Yes", "No"))
	assert.Equal(t, "Yes", got)
}

func TestDeriveMarketTitle_PartialWordCleanup(t *testing.T) {
	titles := []string{
		"Orlando at Indiana: Double Doubles: Pascal Siakam",
		"Orlando at Indiana: Double Doubles: Paolo Banchero",
	}
	got := deriveMarketTitle(contractTitles(titles...))
	assert.Equal(t, "Orlando at Indiana: Double Doubles", got)
}

func TestDeriveMarketTitle_SingleContractUsesItsTitle(t *testing.T) {
	got := deriveMarketTitle(contractTitles("Will it rain tomorrow?"))
	assert.Equal(t, "Will it rain tomorrow?", got)
}

func TestDeriveMarketTitle_SharedMetadataTitleWins(t *testing.T) {
	contracts := contractTitles("A something", "B something else")
	contracts[0].Metadata = map[string]string{"marketTitle": "Shared Title"}
	contracts[1].Metadata = map[string]string{"marketTitle": "Shared Title"}
	assert.Equal(t, "Shared Title", deriveMarketTitle(contracts))
}

func TestExtractEventTicker_FromMetadata(t *testing.T) {
	c := ports.FlatContract{ID: "ignored"}
	c.Metadata = map[string]string{"eventTicker": "KX-FED-24"}
	assert.Equal(t, "KX-FED-24", extractEventTicker(c))
}

func TestExtractEventTicker_FromContractID(t *testing.T) {
	c := ports.FlatContract{ID: "KXFED-24-YES"}
	assert.Equal(t, "KXFED-24", extractEventTicker(c))
}

func TestExtractEventTicker_Ungrouped(t *testing.T) {
	c := ports.FlatContract{ID: "nodash"}
	assert.Equal(t, "__ungrouped__nodash", extractEventTicker(c))
}
