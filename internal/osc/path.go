package osc

import "strings"

// Path joins an address prefix and a method suffix into an OSC address.
//
//	Path("/monome", "grid/key")  == "/monome/grid/key"
//	Path("monome/", "grid/key")  == "/monome/grid/key"
//	Path("", "tilt")             == "/tilt"
func Path(prefix, suffix string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix + "/" + strings.TrimLeft(suffix, "/")
}

// NormalizePrefix returns prefix with exactly one leading slash and no
// trailing slash. An empty or all-slash prefix stays empty.
func NormalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}
