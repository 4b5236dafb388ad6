package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// envelope is the wire shape of a message: one JSON object per line.
//
//	{"type":"extract","buffer":"<base64>"}           extractor -> worker
//	{"type":"log","data":{"level":"info","msg":""}}  worker -> extractor
//	{"type":"extract","data":{"name":"", ...}}       worker -> extractor
//	{"type":"complete"}                              worker -> extractor
//	{"type":"error","data":{"message":""}}           worker -> extractor
type envelope struct {
	Type   string          `json:"type"`
	Buffer []byte          `json:"buffer,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type logData struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

type errorData struct {
	Message string `json:"message"`
}

// Encoder writes messages in the wire format.
type Encoder struct {
	enc *json.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

// EncodeRequest writes the extractor's request.
func (e *Encoder) EncodeRequest(req ExtractRequest) error {
	if err := e.enc.Encode(envelope{Type: string(TagExtract), Buffer: req.Buffer}); err != nil {
		return fmt.Errorf("failed to encode extract request: %w", err)
	}
	return nil
}

// Encode writes a worker message.
func (e *Encoder) Encode(m Message) error {
	env := envelope{Type: string(m.Tag())}

	var data any
	switch m := m.(type) {
	case Log:
		data = logData{Level: string(m.Level), Msg: m.Text}
	case Extracted:
		data = m.Entry
	case Complete:
	case Failure:
		data = errorData{Message: m.Message}
	case Unknown:
	case ExtractRequest:
		return fmt.Errorf("extract request is not a worker message")
	}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal %s message: %w", env.Type, err)
		}
		env.Data = raw
	}

	if err := e.enc.Encode(env); err != nil {
		return fmt.Errorf("failed to encode %s message: %w", env.Type, err)
	}
	return nil
}

// Decoder reads messages in the wire format.
type Decoder struct {
	dec *json.Decoder
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// DecodeRequest reads the extractor's request. It returns io.EOF if the
// stream ends before a request arrives.
func (d *Decoder) DecodeRequest() (ExtractRequest, error) {
	var env envelope
	if err := d.dec.Decode(&env); err != nil {
		if errors.Is(err, io.EOF) {
			return ExtractRequest{}, io.EOF
		}
		return ExtractRequest{}, fmt.Errorf("failed to decode request: %w", err)
	}
	if env.Type != string(TagExtract) {
		return ExtractRequest{}, fmt.Errorf("unexpected request type %q", env.Type)
	}
	return ExtractRequest{Buffer: env.Buffer}, nil
}

// Decode reads one worker message. It returns io.EOF at the end of the
// stream and an error only when the stream itself is unreadable. A
// well-formed envelope with an unknown tag or a bad extract payload decodes
// to Unknown. Log and error messages always decode to Log and Failure.
func (d *Decoder) Decode() (Message, error) {
	var env envelope
	if err := d.dec.Decode(&env); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	switch Tag(env.Type) {
	case TagLog:
		return decodeLog(env.Data), nil
	case TagExtract:
		var entry RawEntry
		if err := json.Unmarshal(env.Data, &entry); err != nil {
			return Unknown{Type: env.Type, Reason: err.Error()}, nil
		}
		return Extracted{Entry: entry}, nil
	case TagComplete:
		return Complete{}, nil
	case TagError:
		var data errorData
		if len(env.Data) > 0 && json.Unmarshal(env.Data, &data) != nil {
			data.Message = string(env.Data)
		}
		if data.Message == "" {
			data.Message = errorWithoutMessage
		}
		return Failure{Message: data.Message}, nil
	default:
		return Unknown{Type: env.Type}, nil
	}
}

const errorWithoutMessage = "worker reported an error without a message"

// decodeLog falls back to LevelInfo for a missing or unrecognised level,
// and to the raw payload as text when it is not a log object.
func decodeLog(raw json.RawMessage) Log {
	var data logData
	if len(raw) > 0 && json.Unmarshal(raw, &data) != nil {
		return Log{Level: LevelInfo, Text: string(raw)}
	}
	level, err := ParseLevel(data.Level)
	if err != nil {
		level = LevelInfo
	}
	return Log{Level: level, Text: data.Msg}
}
