package watchdog

import (
	"encoding/json"
	"time"
)

type AssetNotObserved struct {
	AssetID      string    `json:"assetID"`
	LastObserved time.Time `json:"lastObserved"`
	Timestamp    time.Time `json:"timestamp"`
}

func (a *AssetNotObserved) ContentType() string {
	return "application/json"
}
func (a *AssetNotObserved) TopicName() string {
	return "watchdog.assetNotObserved"
}
func (a *AssetNotObserved) Body() []byte {
	b, _ := json.Marshal(a)
	return b
}
