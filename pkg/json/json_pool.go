// Package json provides JSON serialization on goccy/go-json with pooled
// buffers, plus the record codecs used by file and object connectors.
package json

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/ajitpratap0/nebula-migrate/pkg/models"
	gojson "github.com/goccy/go-json"
)

// Record payload formats
const (
	// FormatLines writes one JSON object per line
	FormatLines = "jsonl"
	// FormatArray writes a single JSON array
	FormatArray = "json"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 { // Don't pool very large buffers
		return
	}
	bufferPool.Put(buf)
}

// Marshal is a drop-in replacement for json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalIndent is a drop-in replacement for json.MarshalIndent
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// StreamingEncoder writes records one at a time in lines or array format
type StreamingEncoder struct {
	writer      io.Writer
	encoder     *gojson.Encoder
	firstRecord bool
	isArray     bool
}

// NewStreamingEncoder creates a new streaming encoder
func NewStreamingEncoder(w io.Writer, isArray bool) (*StreamingEncoder, error) {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if isArray {
		if _, err := w.Write([]byte{'['}); err != nil {
			return nil, err
		}
	}

	return &StreamingEncoder{
		writer:      w,
		encoder:     enc,
		firstRecord: true,
		isArray:     isArray,
	}, nil
}

// Encode encodes a single value
func (se *StreamingEncoder) Encode(v interface{}) error {
	if se.isArray {
		if !se.firstRecord {
			if _, err := se.writer.Write([]byte{','}); err != nil {
				return err
			}
		}
		se.firstRecord = false
	}
	// the encoder terminates every value with a newline
	return se.encoder.Encode(v)
}

// Close finalizes the encoding
func (se *StreamingEncoder) Close() error {
	if se.isArray {
		_, err := se.writer.Write([]byte{']'})
		return err
	}
	return nil
}

// EncodeRecords writes records to w in the given format
func EncodeRecords(w io.Writer, records []models.Record, format string) error {
	enc, err := NewStreamingEncoder(w, format == FormatArray)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return enc.Close()
}

// MarshalRecords returns records encoded in the given format
func MarshalRecords(records []models.Record, format string) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := EncodeRecords(buf, records, format); err != nil {
		return nil, err
	}

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// DecodeRecords reads a JSON array or a stream of JSON objects from r.
// limit > 0 stops after that many records. Integral numbers decode to int64
// and other numbers to float64; integers outside the int64 range are kept as
// their decimal string.
func DecodeRecords(r io.Reader, limit int) ([]models.Record, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := gojson.NewDecoder(br)
	dec.UseNumber()
	var records []models.Record

	if first == '[' {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		for dec.More() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec models.Record
			if err := dec.Decode(&rec); err != nil {
				return nil, err
			}
			records = append(records, normalizeRecord(rec))
		}
		return records, nil
	}

	for {
		if limit > 0 && len(records) >= limit {
			return records, nil
		}
		var rec models.Record
		err := dec.Decode(&rec)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, normalizeRecord(rec))
	}
}

func normalizeRecord(rec models.Record) models.Record {
	for k, v := range rec {
		rec[k] = normalizeNumbers(v)
	}
	return rec
}

func normalizeNumbers(value interface{}) interface{} {
	switch v := value.(type) {
	case gojson.Number:
		return numberValue(v)
	case map[string]interface{}:
		for k, item := range v {
			v[k] = normalizeNumbers(item)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = normalizeNumbers(item)
		}
		return v
	default:
		return value
	}
}

func numberValue(n gojson.Number) interface{} {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
