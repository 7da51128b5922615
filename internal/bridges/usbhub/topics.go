package usbhub

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// CommandPower is the only command name the bridge acts on.
	CommandPower = "POWER"

	hubSegmentPrefix = "HUB"
	stateSegment     = "STATE"
)

// commandSegmentRe matches the final topic segment, e.g. "POWER3".
var commandSegmentRe = regexp.MustCompile(`^([A-Z]+)(\d+)$`)

// Topics holds the three configured topic prefixes.
type Topics struct {
	Availability string
	Status       string
	Command      string
}

// StateTopic returns the retained state topic for a hub.
//
// Example: StateTopic("home/usbhub/stat", "1-3") → "home/usbhub/stat/HUB1-3/STATE"
func StateTopic(statusPrefix, location string) string {
	return statusPrefix + "/" + hubSegmentPrefix + location + "/" + stateSegment
}

// CommandSubscribeTopic returns the wildcard subscription for all commands.
func CommandSubscribeTopic(commandPrefix string) string {
	return commandPrefix + "/#"
}

// Command is a parsed inbound command topic.
type Command struct {
	// Location is the hub location from the HUB<location> segment.
	Location string

	// Name is the alphabetic part of the final segment (e.g. "POWER").
	Name string

	// Number is the numeric suffix, the port number for POWER.
	Number int
}

// ParseCommandTopic splits <commandPrefix>/HUB<location>/<NAME><number>.
func ParseCommandTopic(commandPrefix, topic string) (Command, error) {
	rest, ok := strings.CutPrefix(topic, commandPrefix+"/")
	if !ok {
		return Command{}, fmt.Errorf("%w: %q is outside %q", ErrInvalidTopic, topic, commandPrefix)
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		return Command{}, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}

	location, ok := strings.CutPrefix(parts[0], hubSegmentPrefix)
	if !ok || location == "" {
		return Command{}, fmt.Errorf("%w: %q has no hub segment", ErrInvalidTopic, topic)
	}

	m := commandSegmentRe.FindStringSubmatch(parts[1])
	if m == nil {
		return Command{}, fmt.Errorf("%w: %q has no command segment", ErrInvalidTopic, topic)
	}
	number, err := strconv.Atoi(m[2])
	if err != nil {
		return Command{}, fmt.Errorf("%w: %q: %w", ErrInvalidTopic, topic, err)
	}

	return Command{
		Location: location,
		Name:     m[1],
		Number:   number,
	}, nil
}
