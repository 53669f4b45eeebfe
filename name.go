package opts

import "strings"

// Name is the canonical (lowercase) form of an option name. Registry keys,
// store keys and comparisons always use a Name so a single normalization step
// covers every lookup, insert and delete.
type Name string

// NormalizeName returns the canonical form of name.
func NormalizeName(name string) Name {
	return Name(strings.ToLower(name))
}

// IsCanonical reports whether key is already stored in canonical form.
func IsCanonical(key string) bool {
	return string(NormalizeName(key)) == key
}

func (n Name) String() string {
	return string(n)
}
