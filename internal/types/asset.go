package types

import (
	"strings"

	"github.com/rxtech-lab/tickflow/pkg/errors"
)

// Asset identifies a tradable instrument by exchange class code and security
// code. It is a comparable value type and is used as the subscription key.
type Asset struct {
	Class  string `yaml:"class" json:"class" validate:"required"`
	Symbol string `yaml:"symbol" json:"symbol" validate:"required"`
}

// anyAssetMarker is reserved and never a valid class or symbol.
const anyAssetMarker = "*"

// NewAsset creates an Asset from an explicit class and symbol pair.
func NewAsset(class, symbol string) Asset {
	return Asset{
		Class:  class,
		Symbol: symbol,
	}
}

// AnyAsset returns the reserved wildcard key. Subscribers registered against it
// receive events for every asset in addition to asset-specific subscribers.
func AnyAsset() Asset {
	return Asset{
		Class:  anyAssetMarker,
		Symbol: anyAssetMarker,
	}
}

// AssetOf resolves an instrument identifier of the form "CLASS/SYMBOL" or a
// bare "SYMBOL". A blank identifier, a blank component, or extra separators
// fail resolution.
func AssetOf(identifier string) (Asset, error) {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return Asset{}, errors.New(errors.ErrCodeAssetResolution, "empty instrument identifier")
	}

	if strings.Contains(trimmed, anyAssetMarker) {
		return Asset{}, errors.Newf(errors.ErrCodeAssetResolution, "reserved character in instrument identifier %q", identifier)
	}

	parts := strings.Split(trimmed, "/")
	switch len(parts) {
	case 1:
		return NewAsset("", parts[0]), nil
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return Asset{}, errors.Newf(errors.ErrCodeAssetResolution, "incomplete instrument identifier %q", identifier)
		}

		return NewAsset(parts[0], parts[1]), nil
	default:
		return Asset{}, errors.Newf(errors.ErrCodeAssetResolution, "malformed instrument identifier %q", identifier)
	}
}

// IsAny reports whether the asset is the wildcard key.
func (a Asset) IsAny() bool {
	return a == AnyAsset()
}

// String returns "CLASS/SYMBOL", or just the symbol when no class is set.
func (a Asset) String() string {
	if a.Class == "" {
		return a.Symbol
	}

	return a.Class + "/" + a.Symbol
}
