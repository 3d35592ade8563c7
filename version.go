// Package gatewaygo provides the version information for gateway-go.
package gatewaygo

// Version is the current version of gateway-go.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
