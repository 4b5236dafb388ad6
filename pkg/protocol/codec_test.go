package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_Decode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Message
	}{
		{
			name:  "log",
			input: `{"type":"log","data":{"level":"warn","msg":"checksum mismatch"}}`,
			want:  Log{Level: LevelWarn, Text: "checksum mismatch"},
		},
		{
			name:  "complete",
			input: `{"type":"complete"}`,
			want:  Complete{},
		},
		{
			name:  "error",
			input: `{"type":"error","data":{"message":"boom"}}`,
			want:  Failure{Message: "boom"},
		},
		{
			name:  "log with unrecognised level",
			input: `{"type":"log","data":{"level":"trace","msg":"hi"}}`,
			want:  Log{Level: LevelInfo, Text: "hi"},
		},
		{
			name:  "log without level",
			input: `{"type":"log","data":{"msg":"hi"}}`,
			want:  Log{Level: LevelInfo, Text: "hi"},
		},
		{
			name:  "log without data",
			input: `{"type":"log"}`,
			want:  Log{Level: LevelInfo},
		},
		{
			name:  "log with non-object data",
			input: `{"type":"log","data":"plain text"}`,
			want:  Log{Level: LevelInfo, Text: `"plain text"`},
		},
		{
			name:  "error without data",
			input: `{"type":"error"}`,
			want:  Failure{Message: errorWithoutMessage},
		},
		{
			name:  "error with empty message",
			input: `{"type":"error","data":{}}`,
			want:  Failure{Message: errorWithoutMessage},
		},
		{
			name:  "error with non-object data",
			input: `{"type":"error","data":"disk full"}`,
			want:  Failure{Message: `"disk full"`},
		},
		{
			name:  "unknown tag",
			input: `{"type":"weird"}`,
			want:  Unknown{Type: "weird"},
		},
		{
			name:  "missing tag",
			input: `{}`,
			want:  Unknown{Type: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewDecoder(strings.NewReader(tt.input)).Decode()
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestDecoder_MalformedPayload(t *testing.T) {
	tests := []struct {
		name  string
		input string
		tag   Tag
	}{
		{name: "extract with wrong shape", input: `{"type":"extract","data":[1,2]}`, tag: TagExtract},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewDecoder(strings.NewReader(tt.input)).Decode()
			require.NoError(t, err)
			unknown, ok := msg.(Unknown)
			require.True(t, ok, "expected Unknown, got %T", msg)
			assert.Equal(t, tt.tag, unknown.Tag())
			assert.NotEmpty(t, unknown.Reason)
		})
	}
}

func TestDecoder_EOFAndGarbage(t *testing.T) {
	_, err := NewDecoder(strings.NewReader("")).Decode()
	assert.ErrorIs(t, err, io.EOF)

	_, err = NewDecoder(strings.NewReader("not json")).Decode()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestEncoder_WorkerStream(t *testing.T) {
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	messages := []Message{
		Log{Level: LevelInfo, Text: "starting"},
		Extracted{Entry: RawEntry{
			Name:    "a.txt",
			Buffer:  []byte("hello"),
			Size:    5,
			Type:    TypeRegular,
			Mode:    0o644,
			ModTime: mtime,
			PAX:     map[string]string{"comment": "x"},
		}},
		Failure{Message: "boom"},
		Complete{},
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, m := range messages {
		require.NoError(t, enc.Encode(m))
	}

	dec := NewDecoder(&buf)
	for _, want := range messages {
		got, err := dec.Decode()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := dec.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestEncoder_RejectsRequestAsWorkerMessage(t *testing.T) {
	err := NewEncoder(io.Discard).Encode(ExtractRequest{Buffer: []byte{1}})
	require.Error(t, err)
}

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).EncodeRequest(ExtractRequest{Buffer: []byte{0x00, 0xff, 0x41}}))
	assert.Contains(t, buf.String(), `"type":"extract"`)

	req, err := NewDecoder(&buf).DecodeRequest()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff, 0x41}, req.Buffer)
}

func TestDecodeRequest_WrongType(t *testing.T) {
	_, err := NewDecoder(strings.NewReader(`{"type":"complete"}`)).DecodeRequest()
	require.ErrorContains(t, err, "unexpected request type")

	_, err = NewDecoder(strings.NewReader("")).DecodeRequest()
	assert.ErrorIs(t, err, io.EOF)
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(Complete{}))
	assert.True(t, Terminal(Failure{Message: "x"}))
	assert.False(t, Terminal(Log{}))
	assert.False(t, Terminal(Extracted{}))
	assert.False(t, Terminal(Unknown{Type: "weird"}))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, level)

	_, err = ParseLevel("trace")
	require.Error(t, err)
}
