package countries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	for _, name := range []string{
		"United States", "United Kingdom", "Canada", "Australia", "Germany",
		"Russian Federation", "Bosnia and Herzegovina", "Korea, Republic of",
		"Iran, Islamic Republic of", "Viet Nam", "Moldova, Republic of",
		"Côte d'Ivoire", "Åland Islands",
	} {
		assert.True(t, Valid(name), name)
	}

	for _, name := range []string{
		"", "Atlantis", "united states", "Europe",
		"Russia", "Bosnia & Herzegovina", "St. Kitts & Nevis", "Myanmar (Burma)",
		"Canary Islands", "Ceuta & Melilla", "Diego Garcia", "Clipperton Island",
		"Ascension Island", "Tristan da Cunha",
	} {
		assert.False(t, Valid(name), name)
	}
}

func TestAll(t *testing.T) {
	all := All()
	assert.Len(t, all, 249)
	assert.Equal(t, []string{"Afghanistan", "Åland Islands", "Albania"}, all[:3])
	assert.Equal(t, "Zimbabwe", all[len(all)-1])

	// callers get their own copy
	all[0] = "mutated"
	assert.NotEqual(t, "mutated", All()[0])
}

func TestLookup(t *testing.T) {
	c, ok := Lookup("Russian Federation")
	require.True(t, ok)
	assert.Equal(t, Country{Alpha2: "RU", Alpha3: "RUS", Name: "Russian Federation"}, c)

	c, ok = Lookup("United Kingdom")
	require.True(t, ok)
	assert.Equal(t, "GBR", c.Alpha3)

	_, ok = Lookup("Canary Islands")
	assert.False(t, ok)

	list := List()
	require.Len(t, list, 249)
	for _, c := range list {
		assert.Len(t, c.Alpha2, 2, c.Name)
		assert.Len(t, c.Alpha3, 3, c.Name)
	}
}
