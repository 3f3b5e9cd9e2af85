package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Clock tells the current date and time, optionally in a given IANA zone.
type Clock struct {
	Now func() time.Time
}

func (Clock) Name() string { return "current_time" }

func (Clock) Description() string {
	return "Returns the current date and time in RFC 3339 format. Optionally takes an IANA time zone name."
}

func (Clock) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"timezone":{"type":"string","description":"IANA time zone, e.g. Europe/Lisbon"}}}`)
}

func (c Clock) Run(_ context.Context, args string) (string, error) {
	var in struct {
		Timezone string `json:"timezone"`
	}
	if strings.TrimSpace(args) != "" {
		if err := json.Unmarshal([]byte(args), &in); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now()
	if in.Timezone != "" {
		loc, err := time.LoadLocation(in.Timezone)
		if err != nil {
			return "", fmt.Errorf("unknown time zone %q", in.Timezone)
		}
		t = t.In(loc)
	}
	return t.Format(time.RFC3339), nil
}
