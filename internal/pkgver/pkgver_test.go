package pkgver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCompare checks the component-wise total order, including the
// missing-trailing-components-are-zero rule.
func TestCompare(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, Compare("1.0", "1.0.0"))
	require.Equal(t, 0, Compare("2", "2.0.0"))
	require.True(t, Equal("1.0", "1.0.0"))

	require.Negative(t, Compare("1.0.0", "2.0.0"))
	require.Positive(t, Compare("2.0.0", "1.9.9"))
	require.Negative(t, Compare("1.2", "1.10"))
	require.Positive(t, Compare("1.0.1", "1.0"))

	// Non-numeric components still order deterministically.
	require.Negative(t, Compare("1.0.1", "1.0.beta"))
	require.Positive(t, Compare("1.0.rc2", "1.0.rc1"))
}

// TestLatest resolves the maximum version and rejects empty sets.
func TestLatest(t *testing.T) {
	t.Parallel()

	latest, err := Latest([]string{"1.0.0", "2.0.0", "1.9.9"})
	require.NoError(t, err)
	require.Equal(t, "2.0.0", latest)

	latest, err = Latest([]string{"0.10", "0.9.9"})
	require.NoError(t, err)
	require.Equal(t, "0.10", latest)

	_, err = Latest(nil)
	require.ErrorIs(t, err, ErrNoVersions)
}

// TestSort orders ascending.
func TestSort(t *testing.T) {
	t.Parallel()

	versions := []string{"1.10", "1.2", "0.9", "1.0.1"}
	Sort(versions)
	require.Equal(t, []string{"0.9", "1.0.1", "1.2", "1.10"}, versions)
}
