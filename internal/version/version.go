// ABOUTME: Product and version constants
// ABOUTME: Reported in the server hello and the mDNS TXT record
package version

const (
	// Version is the release version of globesync
	Version = "0.3.0"

	// Product is the product name reported to panels
	Product = "globesync"
)
