package objects

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Snapshot ties a root tree to a point in time and, optionally, a parent
// snapshot. Unlike a git commit it carries no author/message metadata —
// only the fields spec needs to list and chain snapshots.
type Snapshot struct {
	Parent ObjectID // zero ObjectID means "no parent"
	Tree   ObjectID
	Time   int64  // unix seconds
	Date   string // human-readable rendering of Time, fixed at creation
}

// Type returns TypeSnapshot.
func (s *Snapshot) Type() ObjectType {
	return TypeSnapshot
}

// Serialize encodes the snapshot as four records: "parent " and "tree "
// are each followed by a NUL and then the raw 20-byte ObjectID (not hex
// text), mirroring how a Tree entry's name is followed by a NUL and then
// the entry's raw sha1; "time " and "date " are NUL-terminated ASCII text.
func (s *Snapshot) Serialize() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("parent ")
	buf.WriteByte(0)
	buf.Write(s.Parent[:])

	buf.WriteString("tree ")
	buf.WriteByte(0)
	buf.Write(s.Tree[:])

	fmt.Fprintf(&buf, "time %d", s.Time)
	buf.WriteByte(0)
	fmt.Fprintf(&buf, "date %s", s.Date)
	buf.WriteByte(0)

	return buf.Bytes(), nil
}

// ParseSnapshot decodes a snapshot object payload back into a Snapshot.
// The parent/tree records carry raw sha1 bytes that may themselves
// contain a zero byte, so they can't be split out with bytes.Split on
// NUL like the later text records can — every field is read positionally
// instead.
func ParseSnapshot(payload []byte) (*Snapshot, error) {
	s := &Snapshot{}

	payload, err := parseBinaryField(payload, "parent ", s.Parent[:])
	if err != nil {
		return nil, fmt.Errorf("snapshot parent: %w", err)
	}

	payload, err = parseBinaryField(payload, "tree ", s.Tree[:])
	if err != nil {
		return nil, fmt.Errorf("snapshot tree: %w", err)
	}

	field, payload, err := nextTextRecord(payload)
	if err != nil {
		return nil, fmt.Errorf("snapshot time: %w", err)
	}
	timeStr, ok := strings.CutPrefix(field, "time ")
	if !ok {
		return nil, fmt.Errorf("snapshot time: malformed record %q", field)
	}
	t, err := strconv.ParseInt(timeStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("snapshot time: %w", err)
	}
	s.Time = t

	field, _, err = nextTextRecord(payload)
	if err != nil {
		return nil, fmt.Errorf("snapshot date: %w", err)
	}
	dateStr, ok := strings.CutPrefix(field, "date ")
	if !ok {
		return nil, fmt.Errorf("snapshot date: malformed record %q", field)
	}
	s.Date = dateStr

	return s, nil
}

// parseBinaryField strips a "<prefix>\0<len(dst)-byte value>" record off
// the front of payload, copying the raw value into dst and returning the
// remainder of payload.
func parseBinaryField(payload []byte, prefix string, dst []byte) ([]byte, error) {
	if !bytes.HasPrefix(payload, []byte(prefix)) {
		return nil, fmt.Errorf("expected prefix %q", prefix)
	}
	payload = payload[len(prefix):]

	if len(payload) == 0 || payload[0] != 0 {
		return nil, fmt.Errorf("missing NUL terminator after %q", prefix)
	}
	payload = payload[1:]

	if len(payload) < len(dst) {
		return nil, fmt.Errorf("truncated value after %q", prefix)
	}
	copy(dst, payload[:len(dst)])

	return payload[len(dst):], nil
}

// nextTextRecord splits the NUL-terminated text record off the front of
// payload, returning the record (without its terminator) and the rest.
func nextTextRecord(payload []byte) (string, []byte, error) {
	idx := bytes.IndexByte(payload, 0)
	if idx == -1 {
		return "", nil, fmt.Errorf("missing NUL terminator")
	}
	return string(payload[:idx]), payload[idx+1:], nil
}
