package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Wire field names. They are matched case-sensitively.
const (
	FieldStatus  = "Status"
	FieldMessage = "Message"
)

// Kind identifies the type of a status frame.
type Kind uint8

const (
	KindProgress Kind = iota + 1 // "message": resource lifecycle update
	KindError                    // "error": server reported failure
	KindSuccess                  // "success": mutation completed
)

// String returns the wire token for the kind.
func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "message"
	case KindError:
		return "error"
	case KindSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the three wire kinds.
func (k Kind) Valid() bool {
	return k >= KindProgress && k <= KindSuccess
}

// Terminal reports whether a frame of this kind concludes an operation
// from the server's point of view.
func (k Kind) Terminal() bool {
	return k == KindError || k == KindSuccess
}

// ParseKind maps a wire token onto a Kind.
func ParseKind(token string) (Kind, bool) {
	switch token {
	case "message":
		return KindProgress, true
	case "error":
		return KindError, true
	case "success":
		return KindSuccess, true
	default:
		return 0, false
	}
}

// StatusFrame is one decoded server status update.
type StatusFrame struct {
	Status  Kind
	Message string
}

// String returns a compact representation for logs.
func (f StatusFrame) String() string {
	return fmt.Sprintf("%s(%q)", f.Status, f.Message)
}

// wireFrame fixes the field order of encoded frames.
type wireFrame struct {
	Status  string
	Message string
}

// DecodeStatusFrame decodes one inbound payload.
// Any deviation from the two-field object yields a *DecodeError.
func DecodeStatusFrame(raw []byte) (StatusFrame, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return StatusFrame{}, newDecodeError(raw, "", ErrNotObject)
	}

	fields, err := readObject(raw)
	if err != nil {
		return StatusFrame{}, err
	}

	status, err := stringField(raw, fields, FieldStatus)
	if err != nil {
		return StatusFrame{}, err
	}
	message, err := stringField(raw, fields, FieldMessage)
	if err != nil {
		return StatusFrame{}, err
	}

	kind, ok := ParseKind(status)
	if !ok {
		return StatusFrame{}, newDecodeError(raw, FieldStatus, ErrUnknownStatus)
	}
	return StatusFrame{Status: kind, Message: message}, nil
}

// readObject walks the top-level object member by member so that unknown
// and repeated keys are both rejected.
func readObject(raw []byte) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, newDecodeError(raw, "", err)
	}

	fields := make(map[string]json.RawMessage, 2)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, newDecodeError(raw, "", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, newDecodeError(raw, "", ErrNotObject)
		}
		if key != FieldStatus && key != FieldMessage {
			return nil, newDecodeError(raw, key, ErrUnexpectedKey)
		}
		if _, dup := fields[key]; dup {
			return nil, newDecodeError(raw, key, ErrDuplicateKey)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, newDecodeError(raw, key, err)
		}
		fields[key] = value
	}

	end, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, newDecodeError(raw, "", err)
	}
	if end != json.Delim('}') {
		return nil, newDecodeError(raw, "", ErrNotObject)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, newDecodeError(raw, "", ErrTrailingData)
	}
	return fields, nil
}

func stringField(raw []byte, fields map[string]json.RawMessage, key string) (string, error) {
	value, ok := fields[key]
	if !ok {
		return "", newDecodeError(raw, key, ErrMissingField)
	}
	// null would unmarshal into a string without error.
	if len(value) == 0 || value[0] != '"' {
		return "", newDecodeError(raw, key, ErrFieldType)
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return "", newDecodeError(raw, key, err)
	}
	return s, nil
}

// EncodeStatusFrame encodes a server status frame.
func EncodeStatusFrame(f StatusFrame) ([]byte, error) {
	if !f.Status.Valid() {
		return nil, fmt.Errorf("protocol: encode: %w: %d", ErrUnknownStatus, f.Status)
	}
	return json.Marshal(wireFrame{Status: f.Status.String(), Message: f.Message})
}

// EncodeCommand encodes the single client payload: the requested value,
// verbatim, with no envelope.
func EncodeCommand(value string) ([]byte, error) {
	if value == "" {
		return nil, ErrEmptyCommand
	}
	return []byte(value), nil
}
