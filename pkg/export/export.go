// Package export writes a planned day to JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/thermogrid/core/scheduler"
)

// Entry is one (hour, block) cell of a plan. PlantID is empty when the cell
// is unserved.
type Entry struct {
	Hour    int     `json:"hour"`
	BlockID string  `json:"block_id"`
	PlantID string  `json:"plant_id,omitempty"`
	Cost    float64 `json:"cost"`
}

// Plan is a planned day ready for export.
type Plan struct {
	Day     int     `json:"day"`
	Fitness float64 `json:"fitness"`
	Entries []Entry `json:"entries"`
}

// Entries lists the cells of c in hour then block order.
func Entries(inst *scheduler.Instance, c *scheduler.Chromosome, plantIDs, blockIDs []string) []Entry {
	out := make([]Entry, 0, c.Hours()*c.Blocks())
	for h := 0; h < c.Hours(); h++ {
		for b := 0; b < c.Blocks(); b++ {
			e := Entry{Hour: h, BlockID: blockIDs[b]}
			if p := c.At(h, b); p != scheduler.Unserved {
				e.PlantID = plantIDs[p]
				e.Cost = inst.AssignedCost(c, h, b)
			}
			out = append(out, e)
		}
	}
	return out
}

// WriteJSON writes the plan to w in JSON format.
func WriteJSON(w io.Writer, p Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// WriteCSV writes the plan entries to w with an hour,block,plant,cost header.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"hour", "block", "plant", "cost"}); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			strconv.Itoa(e.Hour),
			e.BlockID,
			e.PlantID,
			strconv.FormatFloat(e.Cost, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile picks the format from the extension of path (.json or .csv).
func WriteFile(path string, p Plan) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".json" && ext != ".csv" {
		return fmt.Errorf("unsupported export format %q", ext)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if ext == ".json" {
		return WriteJSON(f, p)
	}
	return WriteCSV(f, p.Entries)
}
