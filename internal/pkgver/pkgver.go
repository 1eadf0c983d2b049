package pkgver

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// ErrNoVersions is returned when a latest-version lookup runs against an
// empty version set.
var ErrNoVersions = errors.New("no versions available")

// Compare imposes a total order over version strings.
// Versions are dot-separated components compared left-to-right; numeric
// components compare as integers, missing trailing components count as zero,
// so "1.0" and "1.0.0" are equal. Non-numeric components fall back to a
// lexical comparison so arbitrary strings still order deterministically.
func Compare(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}

	for i := 0; i < n; i++ {
		if c := compareComponent(component(as, i), component(bs, i)); c != 0 {
			return c
		}
	}

	return 0
}

// Equal reports whether two version strings denote the same version,
// formatting quirks aside.
func Equal(a, b string) bool {
	return Compare(a, b) == 0
}

// Latest returns the maximum version under Compare,
// or ErrNoVersions for an empty set.
func Latest(versions []string) (string, error) {
	if len(versions) == 0 {
		return "", ErrNoVersions
	}

	latest := versions[0]
	for _, v := range versions[1:] {
		if Compare(v, latest) > 0 {
			latest = v
		}
	}

	return latest, nil
}

// Sort orders versions ascending in place.
func Sort(versions []string) {
	sort.Slice(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) < 0
	})
}

// component returns the i-th version component, defaulting to "0" past the end.
func component(parts []string, i int) string {
	if i >= len(parts) {
		return "0"
	}

	return parts[i]
}

func compareComponent(a, b string) int {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)

	if aerr == nil && berr == nil {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}

	// Numeric components sort below non-numeric ones; two non-numeric
	// components compare lexically.
	switch {
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
