package tool

import "strings"

// Origin tags a tool with its source, used for cascading removal.
type Origin string

// OriginLocal marks a tool compiled or registered in-process.
const OriginLocal Origin = "local"

const providerPrefix = "provider:"

// ProviderOrigin returns the origin tag for a named provider.
func ProviderOrigin(name string) Origin {
	return Origin(providerPrefix + name)
}

// IsProvider returns true if the origin references a provider.
func (o Origin) IsProvider() bool {
	return strings.HasPrefix(string(o), providerPrefix)
}

// ProviderName returns the provider name, or "" for local origins.
func (o Origin) ProviderName() string {
	if !o.IsProvider() {
		return ""
	}
	return strings.TrimPrefix(string(o), providerPrefix)
}

// String returns the string representation of the origin.
func (o Origin) String() string {
	return string(o)
}
