package service

import "strings"

// VersionInRange reports whether hostVersion falls inside a version's
// supported-range descriptor.
//
// This is NOT a semantic-version interval test. The check is literal
// substring containment: VersionInRange("1.5", "1.0-2.0") is false because
// the text "1.5" does not occur in "1.0-2.0". The marketplace has always
// shipped with this simplified rule and clients depend on its answers, so it
// is kept as-is rather than replaced with a real range parser.
func VersionInRange(hostVersion, supportedRange string) bool {
	return strings.Contains(supportedRange, hostVersion)
}
