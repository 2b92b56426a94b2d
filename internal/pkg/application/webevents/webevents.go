package webevents

import (
	"encoding/json"
	"net/http"

	gosse "github.com/alexandrevicenzi/go-sse"
)

const IngestedEvent string = "telemetry.ingested"

// WebEvents broadcasts server sent events to every connected dashboard.
type WebEvents interface {
	Handler() http.Handler
	Publish(event string, data any) error
	Shutdown()
}

type webEvents struct {
	s *gosse.Server
}

func New() WebEvents {
	return &webEvents{
		s: gosse.NewServer(&gosse.Options{
			ChannelNameFunc: func(*http.Request) string { return "telemetry" },
			Headers: map[string]string{
				"Access-Control-Allow-Origin": "*",
			},
		}),
	}
}

func (we *webEvents) Handler() http.Handler {
	return we.s
}

func (we *webEvents) Shutdown() {
	we.s.Shutdown()
}

func (we *webEvents) Publish(event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}

	we.s.SendMessage("", gosse.NewMessage("", string(b), event))

	return nil
}
