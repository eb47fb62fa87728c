package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPlatform is returned by ParsePlatform for identifiers outside the fixed set
var ErrUnknownPlatform = errors.New("unknown price platform")

// PriceField is one of the four numeric fields kept in a card's price snapshot
type PriceField string

const (
	PriceFieldUSD     PriceField = "usd"
	PriceFieldUSDFoil PriceField = "usd_foil"
	PriceFieldEUR     PriceField = "eur"
	PriceFieldEURFoil PriceField = "eur_foil"
)

// Platform identifies a price source. Each platform reads exactly one
// price field and reports one currency.
type Platform string

const (
	PlatformScryfallUSD     Platform = "scryfall_usd"
	PlatformScryfallUSDFoil Platform = "scryfall_usd_foil"
	PlatformScryfallEUR     Platform = "scryfall_eur"
	PlatformScryfallEURFoil Platform = "scryfall_eur_foil"
	PlatformTCGPlayer       Platform = "tcgplayer"
	PlatformCardmarket      Platform = "cardmarket"
)

// DefaultPlatform is used whenever a request does not name one
const DefaultPlatform = PlatformScryfallUSD

// PlatformInfo describes how a platform maps onto the price snapshot
type PlatformInfo struct {
	ID       Platform   `json:"id"`
	Name     string     `json:"name"`
	Field    PriceField `json:"key"`
	Currency string     `json:"currency"`
}

var platforms = []PlatformInfo{
	{ID: PlatformScryfallUSD, Name: "Scryfall USD", Field: PriceFieldUSD, Currency: "USD"},
	{ID: PlatformScryfallUSDFoil, Name: "Scryfall USD Foil", Field: PriceFieldUSDFoil, Currency: "USD"},
	{ID: PlatformScryfallEUR, Name: "Scryfall EUR", Field: PriceFieldEUR, Currency: "EUR"},
	{ID: PlatformScryfallEURFoil, Name: "Scryfall EUR Foil", Field: PriceFieldEURFoil, Currency: "EUR"},
	{ID: PlatformTCGPlayer, Name: "TCGPlayer", Field: PriceFieldUSD, Currency: "USD"},
	{ID: PlatformCardmarket, Name: "Cardmarket", Field: PriceFieldEUR, Currency: "EUR"},
}

// AllPlatforms returns every supported platform in display order
func AllPlatforms() []PlatformInfo {
	out := make([]PlatformInfo, len(platforms))
	copy(out, platforms)
	return out
}

// Info returns the platform's metadata; ok is false for unknown platforms
func (p Platform) Info() (PlatformInfo, bool) {
	for _, info := range platforms {
		if info.ID == p {
			return info, true
		}
	}
	return PlatformInfo{}, false
}

func (p Platform) IsValid() bool {
	_, ok := p.Info()
	return ok
}

// Currency returns the platform currency, or "" for unknown platforms
func (p Platform) Currency() string {
	info, _ := p.Info()
	return info.Currency
}

// ParsePlatform normalizes a platform identifier. An empty string yields
// DefaultPlatform.
func ParsePlatform(s string) (Platform, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultPlatform, nil
	}
	p := Platform(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
	return p, nil
}
