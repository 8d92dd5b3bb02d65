package chains

import (
	"os"
	"strings"

	"whalescan/pkg/errors"
)

// Profile is the immutable connection profile for one EVM chain.
type Profile struct {
	ID          string // symbolic key, e.g. "ethereum"
	Name        string
	Symbol      string
	APIURL      string
	APIKeyEnv   string
	APIKey      string
	ExplorerURL string
	ChainID     int64
	PriceAction string // stats action differs per chain (ethprice vs bnbprice)
}

// EtherscanV2API serves every supported chain, selected by the chainid parameter.
const EtherscanV2API = "https://api.etherscan.io/v2/api"

// Registry is a fixed chain table populated once at process start.
// Adding a chain is a data-only change in DefaultProfiles.
type Registry struct {
	profiles []Profile
	byID     map[string]Profile
}

// DefaultProfiles returns the built-in chain table.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			ID:          "ethereum",
			Name:        "Ethereum",
			Symbol:      "ETH",
			APIURL:      EtherscanV2API,
			APIKeyEnv:   "ETHERSCAN_API_KEY",
			ExplorerURL: "https://etherscan.io",
			ChainID:     1,
			PriceAction: "ethprice",
		},
		{
			ID:          "bsc",
			Name:        "BNB Smart Chain",
			Symbol:      "BNB",
			APIURL:      EtherscanV2API,
			APIKeyEnv:   "ETHERSCAN_API_KEY", // same key, v2 multiplexes by chainid
			ExplorerURL: "https://bscscan.com",
			ChainID:     56,
			PriceAction: "bnbprice",
		},
	}
}

// NewRegistry builds a registry from explicit profiles, injecting each
// profile's credential from the environment variable it names. Order is
// preserved for List.
func NewRegistry(profiles ...Profile) *Registry {
	r := &Registry{
		profiles: make([]Profile, 0, len(profiles)),
		byID:     make(map[string]Profile, len(profiles)),
	}
	for _, p := range profiles {
		p.ID = strings.ToLower(p.ID)
		if p.APIKey == "" && p.APIKeyEnv != "" {
			p.APIKey = os.Getenv(p.APIKeyEnv)
		}
		if _, dup := r.byID[p.ID]; dup {
			continue
		}
		r.profiles = append(r.profiles, p)
		r.byID[p.ID] = p
	}
	return r
}

// Default builds the registry from the built-in table.
func Default() *Registry {
	return NewRegistry(DefaultProfiles()...)
}

// Resolve returns the profile for a chain id, or ErrUnknownChain.
func (r *Registry) Resolve(chainID string) (Profile, error) {
	p, ok := r.byID[strings.ToLower(chainID)]
	if !ok {
		return Profile{}, errors.Wrapf(errors.ErrUnknownChain, "%s (available: %s)",
			chainID, strings.Join(r.ids(), ", "))
	}
	return p, nil
}

// List returns profiles in registration order.
func (r *Registry) List() []Profile {
	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

func (r *Registry) ids() []string {
	ids := make([]string, len(r.profiles))
	for i, p := range r.profiles {
		ids[i] = p.ID
	}
	return ids
}
