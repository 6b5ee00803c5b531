package model

import (
	"fmt"
	"strings"
)

// Chain identifies one of the networks the coordinator operates on.
// The set is closed: adding a chain requires updating every exhaustive
// switch in the router, the settlement bridge and the wallet verifier.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainPolygon  Chain = "polygon"
	ChainBSC      Chain = "bsc"
)

// AllChains lists every supported chain in a stable order.
func AllChains() []Chain {
	return []Chain{ChainEthereum, ChainPolygon, ChainBSC}
}

// ParseChain normalizes a chain name from an API path or config value.
func ParseChain(s string) (Chain, error) {
	switch Chain(strings.ToLower(strings.TrimSpace(s))) {
	case ChainEthereum:
		return ChainEthereum, nil
	case ChainPolygon:
		return ChainPolygon, nil
	case ChainBSC:
		return ChainBSC, nil
	default:
		return "", fmt.Errorf("unsupported chain: %q", s)
	}
}

// Valid reports whether c is a member of the supported chain set.
func (c Chain) Valid() bool {
	switch c {
	case ChainEthereum, ChainPolygon, ChainBSC:
		return true
	default:
		return false
	}
}

func (c Chain) String() string {
	return string(c)
}
