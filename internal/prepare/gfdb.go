package prepare

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"tunguska/internal/selection"
)

// GFDB describes the extent of a Green's function database.
type GFDB struct {
	DT     float64 `toml:"dt"`
	FirstX float64 `toml:"firstx"`
	DX     float64 `toml:"dx"`
	NX     int     `toml:"nx"`
}

// LoadGFDB reads a descriptor file.
func LoadGFDB(path string) (GFDB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GFDB{}, fmt.Errorf("read gfdb descriptor: %w", err)
	}
	var db GFDB
	if err := toml.Unmarshal(data, &db); err != nil {
		return GFDB{}, fmt.Errorf("parse gfdb descriptor %s: %w", path, err)
	}
	if db.DT <= 0 || db.DX <= 0 || db.NX < 1 {
		return GFDB{}, fmt.Errorf("gfdb descriptor %s: dt, dx and nx must be positive", path)
	}
	return db, nil
}

// LastX is the largest distance covered by the database.
func (g GFDB) LastX() float64 {
	return g.FirstX + float64(g.NX-1)*g.DX
}

// Range returns the usable distance range shrunk by margin on both ends.
func (g GFDB) Range(margin float64) selection.DistanceRange {
	lo := g.FirstX + margin
	hi := g.LastX() - margin
	return selection.DistanceRange{Min: &lo, Max: &hi}
}
