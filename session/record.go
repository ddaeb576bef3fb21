package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const recordVersion1 = 1

// ErrCorruptRecord is returned when a stored session blob fails to decode.
var ErrCorruptRecord = errors.New("corrupt session record")

// Record is one active session. RefreshID is the jti of the session's
// current refresh token; RefreshExpiresAt mirrors that token's exp so mass
// invalidation can revoke it with the correct remaining TTL.
type Record struct {
	PrincipalID      string
	RefreshID        string
	RefreshExpiresAt int64 // unix seconds
	CreatedAt        int64 // unix seconds
}

// Encode serializes a record into the compact binary wire form stored in
// Redis: version byte, two length-prefixed strings, two big-endian int64s.
func Encode(rec *Record) ([]byte, error) {
	if len(rec.PrincipalID) > 65535 || len(rec.RefreshID) > 65535 {
		return nil, errors.New("session field length exceeded")
	}

	var buf bytes.Buffer
	buf.WriteByte(recordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, uint16(len(rec.PrincipalID))); err != nil {
		return nil, err
	}
	buf.WriteString(rec.PrincipalID)
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(rec.RefreshID))); err != nil {
		return nil, err
	}
	buf.WriteString(rec.RefreshID)

	if err := binary.Write(&buf, binary.BigEndian, rec.RefreshExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, rec.CreatedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses the binary wire form produced by [Encode].
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, ErrCorruptRecord
	}
	if version != recordVersion1 {
		return nil, ErrCorruptRecord
	}

	rec := &Record{}
	rec.PrincipalID, err = readString(reader)
	if err != nil {
		return nil, ErrCorruptRecord
	}
	rec.RefreshID, err = readString(reader)
	if err != nil {
		return nil, ErrCorruptRecord
	}

	if err := binary.Read(reader, binary.BigEndian, &rec.RefreshExpiresAt); err != nil {
		return nil, ErrCorruptRecord
	}
	if err := binary.Read(reader, binary.BigEndian, &rec.CreatedAt); err != nil {
		return nil, ErrCorruptRecord
	}

	return rec, nil
}

func readString(reader *bytes.Reader) (string, error) {
	var length uint16
	if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
		return "", err
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
