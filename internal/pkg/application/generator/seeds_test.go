package generator

import (
	"bytes"
	"testing"

	"github.com/matryer/is"
)

func TestThatLoadFailsOnDuplicateAssetKey(t *testing.T) {
	is := is.New(t)
	_, err := LoadSeeds(bytes.NewBufferString(csvWithDuplicateKey))
	is.True(err != nil)
}

func TestThatLoadFailsOnDuplicateAssetID(t *testing.T) {
	is := is.New(t)
	_, err := LoadSeeds(bytes.NewBufferString(csvWithDuplicateID))
	is.True(err != nil)
}

func TestThatLoadFailsOnBadLatitude(t *testing.T) {
	is := is.New(t)
	_, err := LoadSeeds(bytes.NewBufferString(csvWithBadLatitude))
	is.True(err != nil)
}

func TestThatLoadFailsOnBadLongitude(t *testing.T) {
	is := is.New(t)
	_, err := LoadSeeds(bytes.NewBufferString(csvWithBadLongitude))
	is.True(err != nil)
}

func TestThatLoadFailsOnBadStatus(t *testing.T) {
	is := is.New(t)
	_, err := LoadSeeds(bytes.NewBufferString(csvWithBadStatus))
	is.True(err != nil)
}

func TestThatLoadFailsOnEmptyTable(t *testing.T) {
	is := is.New(t)
	_, err := LoadSeeds(bytes.NewBufferString(seedHeader))
	is.True(err != nil)
}

func TestThatMustLoadSeedsPanicsOnCorruptTable(t *testing.T) {
	is := is.New(t)

	defer func() {
		is.True(recover() != nil)
	}()

	MustLoadSeeds(bytes.NewBufferString(csvWithBadStatus))
}

func TestThatEmbeddedTableIsValid(t *testing.T) {
	is := is.New(t)
	seeds, err := LoadSeeds(bytes.NewReader(embeddedSeeds))
	is.NoErr(err)
	is.Equal(len(seeds), 3)
}

const seedHeader string = "assetKey;assetId;baseLatitude;baseLongitude;status\n"

const csvWithDuplicateKey string = seedHeader + `asset-alaris;asset-alaris;42.3467;-71.0972;available
asset-alaris;asset-other;42.3467;-71.0972;available`

const csvWithDuplicateID string = seedHeader + `asset-alaris;asset-alaris;42.3467;-71.0972;available
asset-other;asset-alaris;42.3467;-71.0972;available`

const csvWithBadLatitude string = seedHeader + `asset-alaris;asset-alaris;gurka;-71.0972;available`

const csvWithBadLongitude string = seedHeader + `asset-alaris;asset-alaris;42.3467;gurka;available`

const csvWithBadStatus string = seedHeader + `asset-alaris;asset-alaris;42.3467;-71.0972;broken`
