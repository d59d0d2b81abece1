package sizefs

import "strings"

// Xattrs is a canonicalized extended-attribute map.
type Xattrs map[string]string

// canonicalizeXattr applies the single naming rule used at every xattr API
// boundary: a name with no dot is prefixed with "user."; a name that already
// starts with "user." or carries some other dot namespace (e.g. com.apple.*)
// is used verbatim. setxattr, getxattr, and removexattr all funnel through
// this one function, unlike the reference implementation which applied
// slightly different tests in each.
func canonicalizeXattr(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return "user." + name
}
