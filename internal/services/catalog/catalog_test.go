package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "item_list.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items": [
		{"name": "Team Captain", "sku": "378;6"},
		{"name": "Mann Co. Supply Crate Key", "sku": "5021;6"}
	]}`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Entries(), 2)

	sku, err := c.SKUFromName("Team Captain")
	require.NoError(t, err)
	require.Equal(t, "378;6", sku)

	name, err := c.NameFromSKU("5021;6")
	require.NoError(t, err)
	require.Equal(t, "Mann Co. Supply Crate Key", name)
}

func TestLookupUnknown(t *testing.T) {
	c := New([]Entry{{Name: "Team Captain", SKU: "378;6"}})

	_, err := c.SKUFromName("Unknown Hat")
	require.ErrorIs(t, err, ErrUnknownItem)

	_, err = c.NameFromSKU("0;0")
	require.ErrorIs(t, err, ErrUnknownItem)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
