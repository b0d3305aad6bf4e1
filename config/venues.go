package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"intentengine/crypto"
	"intentengine/native/router"
)

// VenueFile is the YAML catalogue of assets and venue settlement accounts.
type VenueFile struct {
	Assets []AssetEntry  `yaml:"assets"`
	Venues VenueAccounts `yaml:"venues"`
	Risk   []RiskEntry   `yaml:"risk"`
}

// AssetEntry names an asset. ID is its bech32 asset identifier; when omitted
// the identifier is derived from the symbol.
type AssetEntry struct {
	Symbol string `yaml:"symbol"`
	ID     string `yaml:"id"`
	Major  bool   `yaml:"major"`
}

// VenueAccounts maps venue names to bech32 account addresses.
type VenueAccounts struct {
	Swap    map[string]string `yaml:"swap"`
	Lending map[string]string `yaml:"lending"`
}

// RiskEntry pins an operator-assigned risk score to an asset symbol.
type RiskEntry struct {
	Symbol string `yaml:"symbol"`
	Score  uint8  `yaml:"score"`
}

// Catalog is the resolved venue file.
type Catalog struct {
	assets  map[string][20]byte
	majors  [][20]byte
	swap    map[router.SwapVenue][20]byte
	lending map[router.LendingVenue][20]byte
	risk    map[[20]byte]uint8
}

var defaultAssets = []AssetEntry{
	{Symbol: "USDC", Major: true},
	{Symbol: "USDT", Major: true},
	{Symbol: "SOL", Major: true},
}

// LoadVenues reads and resolves a venue file. An empty path yields the
// built-in catalogue.
func LoadVenues(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return ResolveVenues(VenueFile{})
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open venues: %w", err)
	}
	defer file.Close()
	var vf VenueFile
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&vf); err != nil {
		return nil, fmt.Errorf("decode venues: %w", err)
	}
	return ResolveVenues(vf)
}

// ResolveVenues validates a venue file and fills in derived identities.
func ResolveVenues(vf VenueFile) (*Catalog, error) {
	if len(vf.Assets) == 0 {
		vf.Assets = defaultAssets
	}
	c := &Catalog{
		assets:  make(map[string][20]byte, len(vf.Assets)),
		swap:    make(map[router.SwapVenue][20]byte),
		lending: make(map[router.LendingVenue][20]byte),
		risk:    make(map[[20]byte]uint8),
	}
	for _, entry := range vf.Assets {
		symbol := strings.ToUpper(strings.TrimSpace(entry.Symbol))
		if symbol == "" {
			return nil, fmt.Errorf("venues: asset symbol required")
		}
		if _, dup := c.assets[symbol]; dup {
			return nil, fmt.Errorf("venues: duplicate asset %s", symbol)
		}
		id := crypto.DeriveAddress("asset", []byte(symbol))
		if strings.TrimSpace(entry.ID) != "" {
			addr, err := crypto.DecodePrefixed(entry.ID, crypto.AssetPrefix)
			if err != nil {
				return nil, fmt.Errorf("venues: asset %s: %w", symbol, err)
			}
			id = addr.Raw()
		}
		c.assets[symbol] = id
		if entry.Major {
			c.majors = append(c.majors, id)
		}
	}
	for name, raw := range vf.Venues.Swap {
		venue, err := router.ParseSwapVenue(name)
		if err != nil {
			return nil, fmt.Errorf("venues: %w", err)
		}
		addr, err := crypto.DecodePrefixed(raw, crypto.AccountPrefix)
		if err != nil {
			return nil, fmt.Errorf("venues: %s account: %w", venue, err)
		}
		c.swap[venue] = addr.Raw()
	}
	for name, raw := range vf.Venues.Lending {
		venue, err := router.ParseLendingVenue(name)
		if err != nil {
			return nil, fmt.Errorf("venues: %w", err)
		}
		addr, err := crypto.DecodePrefixed(raw, crypto.AccountPrefix)
		if err != nil {
			return nil, fmt.Errorf("venues: %s account: %w", venue, err)
		}
		c.lending[venue] = addr.Raw()
	}
	for _, entry := range vf.Risk {
		id, ok := c.assets[strings.ToUpper(strings.TrimSpace(entry.Symbol))]
		if !ok {
			return nil, fmt.Errorf("venues: risk score for unknown asset %s", entry.Symbol)
		}
		if entry.Score > 100 {
			return nil, fmt.Errorf("venues: risk score %d for %s out of range", entry.Score, entry.Symbol)
		}
		c.risk[id] = entry.Score
	}
	return c, nil
}

// Asset resolves a symbol or a bech32 asset identifier.
func (c *Catalog) Asset(ref string) ([20]byte, error) {
	trimmed := strings.TrimSpace(ref)
	if id, ok := c.assets[strings.ToUpper(trimmed)]; ok {
		return id, nil
	}
	addr, err := crypto.DecodePrefixed(trimmed, crypto.AssetPrefix)
	if err != nil {
		return [20]byte{}, fmt.Errorf("unknown asset %q", ref)
	}
	return addr.Raw(), nil
}

// Symbols lists the catalogued symbols in order.
func (c *Catalog) Symbols() []string {
	out := make([]string, 0, len(c.assets))
	for symbol := range c.assets {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Majors returns the major assets.
func (c *Catalog) Majors() [][20]byte {
	return append([][20]byte(nil), c.majors...)
}

// SwapAccount returns a swap venue's settlement account. Unconfigured venues
// get an account derived from their name.
func (c *Catalog) SwapAccount(venue router.SwapVenue) [20]byte {
	if addr, ok := c.swap[venue]; ok {
		return addr
	}
	return crypto.DeriveAddress("venue", []byte(venue.String()))
}

// LendingAccount returns a lending venue's receiving account. Unconfigured
// venues get an account derived from their name.
func (c *Catalog) LendingAccount(venue router.LendingVenue) [20]byte {
	if addr, ok := c.lending[venue]; ok {
		return addr
	}
	return crypto.DeriveAddress("venue", []byte(venue.String()))
}

// RiskScores returns the pinned risk scores.
func (c *Catalog) RiskScores() map[[20]byte]uint8 {
	out := make(map[[20]byte]uint8, len(c.risk))
	for id, score := range c.risk {
		out[id] = score
	}
	return out
}
