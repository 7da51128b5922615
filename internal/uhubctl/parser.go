package uhubctl

import (
	"regexp"
	"strconv"
	"strings"
)

// Mode selects how many lines after a hub header are searched for port status.
type Mode int

const (
	// ModeFull reads as many lines as the header declares ports.
	ModeFull Mode = iota

	// ModeAction reads a single line: uhubctl only reports the affected port
	// when it is run with -p.
	ModeAction
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeAction:
		return "action"
	default:
		return "unknown"
	}
}

var (
	// hubHeaderRe matches e.g.
	//   Current status for hub 1-3 [2109:0817 VIA Labs, Inc. USB3.0 Hub, USB 3.00, 4 ports, ppps]
	// The greedy ".*" skips product strings that themselves mention "USB".
	hubHeaderRe = regexp.MustCompile(`status for hub (\S+) \[([0-9a-fA-F]{4}):([0-9a-fA-F]{4}).*USB (\d+)\.\d+, (\d+) ports?, ppps`)

	// portStatusRe matches e.g.
	//   Port 2: 0203 power 5gbps U0 enable connect
	portStatusRe = regexp.MustCompile(`^\s*Port (\d+): ([0-9a-fA-F]{4})\b`)
)

// Parse converts uhubctl output into hubs in the order their headers appear.
//
// Lines that match neither a hub header nor a port status line are ignored.
// For every header the following lines are searched for port status: as
// many as the header declares ports in ModeFull, exactly one in ModeAction.
// Port lines that repeat a number or fall outside the declared range are
// dropped.
//
// Returns ErrNoHubFound if no header matched.
func Parse(output string, mode Mode) ([]*Hub, error) {
	output = strings.ReplaceAll(output, "\r\n", "\n")
	lines := strings.Split(strings.TrimSpace(output), "\n")

	var hubs []*Hub
	for i, line := range lines {
		hub, ok := parseHubHeader(line)
		if !ok {
			continue
		}

		window := hub.NumPorts
		if mode == ModeAction {
			window = 1
		}
		end := min(i+1+window, len(lines))

		for _, portLine := range lines[i+1 : end] {
			number, status, ok := parsePortStatus(portLine)
			if !ok {
				continue
			}
			hub.addPort(number, status)
		}

		hubs = append(hubs, hub)
	}

	if len(hubs) == 0 {
		return nil, ErrNoHubFound
	}
	return hubs, nil
}

// parseHubHeader decodes a hub header line into a Hub without ports.
func parseHubHeader(line string) (*Hub, bool) {
	m := hubHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	vid, err := strconv.ParseUint(m[2], 16, 16)
	if err != nil {
		return nil, false
	}
	pid, err := strconv.ParseUint(m[3], 16, 16)
	if err != nil {
		return nil, false
	}
	usbVersion, err := strconv.Atoi(m[4])
	if err != nil {
		return nil, false
	}
	numPorts, err := strconv.Atoi(m[5])
	if err != nil {
		return nil, false
	}

	return &Hub{
		Location:   m[1],
		VendorID:   uint16(vid),
		ProductID:  uint16(pid),
		USBVersion: usbVersion,
		NumPorts:   numPorts,
		Ports:      []*Port{},
	}, true
}

// parsePortStatus decodes a "Port N: XXXX" line.
func parsePortStatus(line string) (int, uint16, bool) {
	m := portStatusRe.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}

	number, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	status, err := strconv.ParseUint(m[2], 16, 16)
	if err != nil {
		return 0, 0, false
	}

	return number, uint16(status), true
}
