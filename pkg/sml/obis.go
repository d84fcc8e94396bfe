package sml

import (
	"encoding/hex"
	"fmt"
	"log"
	"math"
	"strconv"
)

// obisIdentity is the tag carrying the meter identification octet string.
const obisIdentity = "0100600100ff"

type obisField struct {
	name  string
	scale float64
}

// Mapped OBIS tags. Unmapped tags are dropped so unknown codes from
// newer meter firmware pass through harmlessly.
var obisMapping = map[string]obisField{
	"0100010800ff": {"energy_total_import", 0.0001},
	"0100020800ff": {"energy_total_export", 0.0001},
	"0100100700ff": {"power_total", 1},
	"0100240700ff": {"power_l1", 1},
	"0100380700ff": {"power_l2", 1},
	"01004c0700ff": {"power_l3", 1},
	"01001f0700ff": {"current_l1", 0.01},
	"0100330700ff": {"current_l2", 0.01},
	"0100470700ff": {"current_l3", 0.01},
	"0100200700ff": {"voltage_l1", 0.1},
	"0100340700ff": {"voltage_l2", 0.1},
	"0100480700ff": {"voltage_l3", 0.1},
	"01000e0700ff": {"frequency", 0.1},
}

// Reading is one decoded measurement set plus the meter identity.
type Reading struct {
	MeterID string
	Values  map[string]float64
}

// Decode walks all list entries of a validated frame payload and
// collects the mapped measurements. Values are scaled and rounded to
// three decimals as stored downstream.
func Decode(payload []byte) (*Reading, error) {
	messages, err := parsePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("parse sml payload: %w", err)
	}

	reading := &Reading{Values: make(map[string]float64)}
	for _, msg := range messages {
		collectEntries(msg, reading)
	}
	return reading, nil
}

// collectEntries recursively finds value list entries: lists whose
// first element is a 6-byte OBIS identifier.
func collectEntries(n node, reading *Reading) {
	if n.kind != typeList {
		return
	}
	if len(n.list) >= 6 && n.list[0].kind == typeOctet && len(n.list[0].octet) == 6 {
		obis := hex.EncodeToString(n.list[0].octet)
		value := n.list[5]
		if obis == obisIdentity && value.kind == typeOctet {
			if id, err := ParseMeterIdentity(value.octet); err == nil {
				reading.MeterID = id
			} else {
				log.Printf("Could not parse meter identity %x: %v", value.octet, err)
			}
			return
		}
		field, ok := obisMapping[obis]
		if !ok {
			return
		}
		raw, ok := value.numeric()
		if !ok {
			return
		}
		reading.Values[field.name] = math.Round(float64(raw)*field.scale*1000) / 1000
		return
	}
	for _, child := range n.list {
		collectEntries(child, reading)
	}
}

// ParseMeterIdentity derives the meter identity string from the raw
// identification octet string. After skipping the first byte, the hex
// rendering reads: a two-digit counter, three ASCII manufacturer bytes,
// three hex digits of unknown meaning, then the serial as a hex number.
// The parts are concatenated in decoded form.
func ParseMeterIdentity(raw []byte) (string, error) {
	s := hex.EncodeToString(raw)
	if len(s) < 14 {
		return "", fmt.Errorf("identity value too short: %q", s)
	}
	s = s[2:]

	counter, err := strconv.Atoi(s[0:2])
	if err != nil {
		return "", fmt.Errorf("parse identity counter: %w", err)
	}
	man, err := hex.DecodeString(s[2:8])
	if err != nil {
		return "", fmt.Errorf("parse manufacturer code: %w", err)
	}
	unknown := s[8:11]
	serial, err := strconv.ParseUint(s[11:], 16, 64)
	if err != nil {
		return "", fmt.Errorf("parse identity serial: %w", err)
	}
	return fmt.Sprintf("%d%s%s%d", counter, man, unknown, serial), nil
}
