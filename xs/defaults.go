package xs

import (
	"bytes"
	_ "embed"
	"fmt"
)

// Built-in cross sections used when no table files are configured: a slowly
// falling elastic channel and a 1/v capture channel, tabulated on a log grid
// over [1e-5, 2e7) eV.
var (
	//go:embed data/scatter.csv
	defaultScatterCSV []byte

	//go:embed data/absorb.csv
	defaultAbsorbCSV []byte
)

// DefaultScatter returns the embedded elastic-scatter table.
func DefaultScatter() *Table {
	return mustRead("scatter", defaultScatterCSV)
}

// DefaultAbsorb returns the embedded absorption table.
func DefaultAbsorb() *Table {
	return mustRead("absorb", defaultAbsorbCSV)
}

func mustRead(name string, data []byte) *Table {
	t, err := Read(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("xs: embedded %s table: %v", name, err))
	}
	return t
}
