// Package catalog resolves item names to SKUs and holds the allow-list of
// items the pricer is responsible for.
package catalog

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// KeySKU identifies the key item itself, which is never priced by the engine:
// its baseline price defines the key rate every other price depends on.
const KeySKU = "5021;6"

// Entry is one priceable item.
type Entry struct {
	Name string `json:"name"`
	SKU  string `json:"sku"`
}

// Catalog maps item names to SKUs and back. Immutable after load.
type Catalog struct {
	entries []Entry
	byName  map[string]string
	bySKU   map[string]string
}

// ErrUnknownItem is returned when a name or SKU is not in the catalog.
var ErrUnknownItem = errors.New("item not in catalog")

type itemListFile struct {
	Items []Entry `json:"items"`
}

// Load reads the item list from a JSON file of the form
// {"items": [{"name": ..., "sku": ...}]}.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read item list %s", path)
	}
	var file itemListFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrapf(err, "parse item list %s", path)
	}
	return New(file.Items), nil
}

// New builds a catalog from entries. Later duplicates win.
func New(entries []Entry) *Catalog {
	c := &Catalog{
		entries: entries,
		byName:  make(map[string]string, len(entries)),
		bySKU:   make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		c.byName[e.Name] = e.SKU
		c.bySKU[e.SKU] = e.Name
	}
	return c
}

// Entries returns the priceable items in file order.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// SKUFromName resolves an item name to its SKU.
func (c *Catalog) SKUFromName(name string) (string, error) {
	sku, ok := c.byName[name]
	if !ok {
		return "", errors.Wrap(ErrUnknownItem, name)
	}
	return sku, nil
}

// NameFromSKU resolves a SKU to its item name.
func (c *Catalog) NameFromSKU(sku string) (string, error) {
	name, ok := c.bySKU[sku]
	if !ok {
		return "", errors.Wrap(ErrUnknownItem, sku)
	}
	return name, nil
}
