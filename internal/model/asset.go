package model

// AssetInfo describes a token on a specific chain. Instances are immutable
// once constructed; identity is the (chain, address) pair.
type AssetInfo struct {
	Chain    Chain  `json:"chain"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
	LogoURL  string `json:"logo_url,omitempty"`
}

// Key returns the identity of the asset, usable as a map key.
func (a AssetInfo) Key() string {
	return string(a.Chain) + ":" + a.Address
}
