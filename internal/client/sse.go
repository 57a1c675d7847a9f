package client

import (
	"bufio"
	"io"
	"strings"
)

// Event is one dispatched server-sent event.
type Event struct {
	Type string
	Data string
}

// eventReader parses a text/event-stream body. Comment lines (keepalives) and
// unknown fields are ignored; an event without a type is a "message".
type eventReader struct {
	r *bufio.Reader
}

func newEventReader(r io.Reader) *eventReader {
	return &eventReader{r: bufio.NewReader(r)}
}

// Next blocks until a complete event has been read or the body fails.
func (er *eventReader) Next() (Event, error) {
	var (
		ev      Event
		data    []string
		hasData bool
	)
	for {
		line, err := er.r.ReadString('\n')
		if err != nil {
			return Event{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if !hasData && ev.Type == "" {
				continue
			}
			if ev.Type == "" {
				ev.Type = "message"
			}
			ev.Data = strings.Join(data, "\n")
			return ev, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Type = value
		case "data":
			data = append(data, value)
			hasData = true
		}
	}
}
