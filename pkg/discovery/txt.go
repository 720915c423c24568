package discovery

import (
	"strconv"
	"strings"
)

// TXT record keys.
const (
	// TXTKeyID carries the advertised role identity.
	TXTKeyID = "ID"

	// TXTKeyProtocol carries the handshake protocol version.
	TXTKeyProtocol = "PV"
)

// ProtocolVersion is the handshake version advertised in TXT records.
const ProtocolVersion = 1

// MaxTXTValueLength bounds a single TXT value.
const MaxTXTValueLength = 200

// RoleTXT holds the TXT attributes of a role advertisement.
type RoleTXT struct {
	// ID is the role identity (e.g., "ServerSID928462").
	ID string

	// ProtocolVersion is the handshake version. Zero is omitted.
	ProtocolVersion int
}

// Encode returns the TXT records as "key=value" strings.
func (r *RoleTXT) Encode() []string {
	var records []string
	if r.ID != "" {
		records = append(records, TXTKeyID+"="+r.ID)
	}
	if r.ProtocolVersion != 0 {
		records = append(records, TXTKeyProtocol+"="+strconv.Itoa(r.ProtocolVersion))
	}
	return records
}

// Validate checks the TXT attributes.
func (r *RoleTXT) Validate() error {
	if len(r.ID) > MaxTXTValueLength || strings.ContainsAny(r.ID, "=\x00") {
		return ErrBadTXT
	}
	if r.ProtocolVersion < 0 {
		return ErrBadTXT
	}
	return nil
}

// ParseTXT splits "key=value" records into a map. Records without '=' map
// to an empty value; the first occurrence of a key wins.
func ParseTXT(records []string) map[string]string {
	result := make(map[string]string, len(records))
	for _, record := range records {
		key, value, _ := strings.Cut(record, "=")
		if key == "" {
			continue
		}
		if _, exists := result[key]; !exists {
			result[key] = value
		}
	}
	return result
}

// ParseRoleTXT parses TXT records into a RoleTXT.
func ParseRoleTXT(records []string) (*RoleTXT, error) {
	txt := ParseTXT(records)

	r := &RoleTXT{ID: txt[TXTKeyID]}
	if v, ok := txt[TXTKeyProtocol]; ok {
		pv, err := strconv.Atoi(v)
		if err != nil {
			return nil, ErrBadTXT
		}
		r.ProtocolVersion = pv
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
