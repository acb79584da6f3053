package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NodeRef is a reference to a tree node as clients send it: a single scalar
// that may be the store-assigned durable id (a number) or the client-minted
// transient id (a string). During the window between creation and broadcast
// acknowledgement a client may hold either form, so the raw text is preserved
// for the reconciler's stringified-comparison fallback.
type NodeRef struct {
	Durable   uint   // parsed durable id, 0 if the reference is not numeric
	Transient string // transient id candidate, empty for plain numbers
	Raw       string // the reference exactly as received
}

// DurableRef builds a reference from a known durable id.
func DurableRef(id uint) NodeRef {
	return NodeRef{Durable: id, Raw: strconv.FormatUint(uint64(id), 10)}
}

// TransientRef builds a reference from a client-minted id.
func TransientRef(id string) NodeRef {
	return NodeRef{Transient: id, Raw: id}
}

// IsZero reports whether no reference was supplied.
func (r NodeRef) IsZero() bool {
	return r.Raw == ""
}

func (r NodeRef) String() string {
	return r.Raw
}

// UnmarshalJSON accepts a JSON number, a JSON string, or null. A numeric
// string such as "42" is kept as both forms: the durable lookup is tried
// first, and the transient form remains available in case a client minted a
// digits-only id.
func (r *NodeRef) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*r = NodeRef{}
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return fmt.Errorf("dto: invalid node reference %s: %w", s, err)
		}
		ref := NodeRef{Transient: str, Raw: str}
		if n, err := strconv.ParseUint(str, 10, 32); err == nil {
			ref.Durable = uint(n)
		}
		*r = ref
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return fmt.Errorf("dto: invalid node reference %s", s)
	}
	*r = NodeRef{Durable: uint(n), Raw: s}
	return nil
}

// MarshalJSON emits the durable form when known, otherwise the transient
// string, otherwise null.
func (r NodeRef) MarshalJSON() ([]byte, error) {
	if r.Durable != 0 {
		return []byte(strconv.FormatUint(uint64(r.Durable), 10)), nil
	}
	if r.Transient != "" {
		return json.Marshal(r.Transient)
	}
	return []byte("null"), nil
}
