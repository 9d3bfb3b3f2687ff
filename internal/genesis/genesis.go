// Package genesis seeds the account state at node bootstrap from a TOML
// fixture describing master collectibles.
package genesis

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/pelletier/go-toml/v2"
	"github.com/zeebo/blake3"
)

// mintDomain separates genesis mint derivation from other blake3 uses.
const mintDomain = "satellite-genesis-mint:"

// Genesis is the parsed fixture.
type Genesis struct {
	Collectibles []Collectible `toml:"collectible"`
}

// Collectible describes one master collectible to create.
type Collectible struct {
	Seed                 string    `toml:"seed"`   // Seed derives the mint address
	Holder               string    `toml:"holder"` // Holder is the base58 wallet receiving the master token
	Name                 string    `toml:"name"`
	Symbol               string    `toml:"symbol"`
	URI                  string    `toml:"uri"`
	SellerFeeBasisPoints uint16    `toml:"seller_fee_basis_points"`
	MaxSupply            *uint64   `toml:"max_supply"`   // MaxSupply unset means unbounded printing
	ListCustody          bool      `toml:"list_custody"` // ListCustody adds the custody address as a creator
	Creators             []Creator `toml:"creator"`
}

// Creator is a beneficiary entry.
type Creator struct {
	Address  string `toml:"address"`
	Share    uint8  `toml:"share"`
	Verified bool   `toml:"verified"`
}

// Load reads and validates a fixture file.
func Load(path string) (*Genesis, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genesis:\n%w", err)
	}
	defer file.Close()

	var g Genesis

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&g); err != nil {
		return nil, fmt.Errorf("parse genesis:\n%w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return &g, nil
}

// Parse decodes and validates fixture bytes.
func Parse(data []byte) (*Genesis, error) {
	var g Genesis
	if err := toml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse genesis:\n%w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return &g, nil
}

// Validate checks every entry can be applied.
func (g *Genesis) Validate() error {
	seeds := make(map[string]bool, len(g.Collectibles))

	for i, c := range g.Collectibles {
		if c.Seed == "" {
			return fmt.Errorf("collectible %d: seed is required", i)
		}

		if seeds[c.Seed] {
			return fmt.Errorf("collectible %d: duplicate seed %q", i, c.Seed)
		}
		seeds[c.Seed] = true

		if _, err := solana.PublicKeyFromBase58(c.Holder); err != nil {
			return fmt.Errorf("collectible %q: holder: %w", c.Seed, err)
		}

		if len(c.Creators) == 0 {
			continue
		}

		total := 0
		for _, cr := range c.Creators {
			if _, err := solana.PublicKeyFromBase58(cr.Address); err != nil {
				return fmt.Errorf("collectible %q: creator: %w", c.Seed, err)
			}
			total += int(cr.Share)
		}

		if total != 100 {
			return fmt.Errorf("collectible %q: creator shares total %d, want 100", c.Seed, total)
		}
	}

	return nil
}

// MintAddress returns the mint address derived from a collectible seed.
func MintAddress(seed string) solana.PublicKey {
	sum := blake3.Sum256([]byte(mintDomain + seed))
	return solana.PublicKeyFromBytes(sum[:])
}
