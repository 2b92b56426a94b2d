package generator

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/diwise/iot-asset-telemetry/pkg/types"
)

//go:embed seeds.csv
var embeddedSeeds []byte

// Seed is the static base record all synthetic data for an asset is derived from.
type Seed struct {
	AssetKey      string            `json:"assetKey"`
	AssetID       string            `json:"assetId"`
	BaseLatitude  float64           `json:"baseLatitude"`
	BaseLongitude float64           `json:"baseLongitude"`
	Status        types.AssetStatus `json:"status"`
}

const seedColumns = 5

// LoadSeeds reads a ';' separated seed table with a header row.
func LoadSeeds(seedFile io.Reader) ([]Seed, error) {
	r := csv.NewReader(seedFile)
	r.Comma = ';'

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv data from seed table: %s", err.Error())
	}

	seeds := []Seed{}
	byKey := map[string]bool{}
	byID := map[string]bool{}

	for idx, row := range rows {
		if idx == 0 {
			continue
		}

		if len(row) != seedColumns {
			return nil, fmt.Errorf("expected %d columns on line %d in seed table, found %d", seedColumns, idx+1, len(row))
		}

		key := strings.TrimSpace(row[0])
		assetID := strings.TrimSpace(row[1])

		if key == "" || assetID == "" {
			return nil, fmt.Errorf("missing asset key or id on line %d in seed table", idx+1)
		}

		if byKey[key] {
			return nil, fmt.Errorf("duplicate asset key %s found on line %d in seed table", key, idx+1)
		}

		if byID[assetID] {
			return nil, fmt.Errorf("duplicate asset id %s found on line %d in seed table", assetID, idx+1)
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse latitude for asset %s: %s", key, err.Error())
		}

		lon, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse longitude for asset %s: %s", key, err.Error())
		}

		status := types.AssetStatus(strings.TrimSpace(row[4]))
		if !status.IsValid() {
			return nil, fmt.Errorf("bad status specified for asset %s on line %d in seed table (\"%s\" not in %v)", key, idx+1, status, types.AllAssetStatuses())
		}

		byKey[key] = true
		byID[assetID] = true

		seeds = append(seeds, Seed{
			AssetKey:      key,
			AssetID:       assetID,
			BaseLatitude:  lat,
			BaseLongitude: lon,
			Status:        status,
		})
	}

	if len(seeds) == 0 {
		return nil, fmt.Errorf("seed table contains no assets")
	}

	return seeds, nil
}

// MustLoadSeeds panics if the seed table is corrupt.
func MustLoadSeeds(seedFile io.Reader) []Seed {
	seeds, err := LoadSeeds(seedFile)
	if err != nil {
		panic(fmt.Sprintf("corrupt seed table: %s", err.Error()))
	}
	return seeds
}

var (
	defaultSeeds     []Seed
	defaultSeedsOnce sync.Once
)

func builtinSeeds() []Seed {
	defaultSeedsOnce.Do(func() {
		defaultSeeds = MustLoadSeeds(bytes.NewReader(embeddedSeeds))
	})
	return defaultSeeds
}

func fallbackSeed(assetID string) Seed {
	return Seed{
		AssetKey:      assetID,
		AssetID:       assetID,
		BaseLatitude:  42.3467,
		BaseLongitude: -71.0972,
		Status:        types.AssetStatusAvailable,
	}
}
