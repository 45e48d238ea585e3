package database

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"reflect"

	"github.com/pkg/errors"
)

// Document is a stored record: its top-level JSON fields.
type Document map[string]json.RawMessage

var (
	idField   = "id"
	nullValue = []byte("null")
)

// Encode converts a record (struct or map) into a Document.
func Encode(record interface{}) (Document, error) {
	if raw, ok := record.(json.RawMessage); ok {
		return decodeDocument(raw)
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, errors.Wrap(err, "encoding record")
	}
	return decodeDocument(raw)
}

func decodeDocument(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "record must be a JSON object")
	}
	if doc == nil {
		return nil, errors.New("record must be a JSON object")
	}
	return doc, nil
}

// Clone returns a shallow copy of doc.
func (doc Document) Clone() Document {
	c := make(Document, len(doc))
	for k, v := range doc {
		c[k] = v
	}
	return c
}

// SetID writes id into the document's id field.
func (doc Document) SetID(id int) {
	raw, _ := json.Marshal(id)
	doc[idField] = raw
}

// Merge overlays the fields of patch; the id field is never overwritten.
func (doc Document) Merge(patch Document) {
	for k, v := range patch {
		if k == idField {
			continue
		}
		doc[k] = v
	}
}

// Marshal returns the JSON encoding of doc.
func (doc Document) Marshal() ([]byte, error) {
	raw, err := json.Marshal(doc)
	return raw, errors.Wrap(err, "encoding document")
}

// IndexKey returns the index key of field, false when the field is missing or null.
func (doc Document) IndexKey(field string) ([]byte, bool) {
	raw, ok := doc[field]
	if !ok {
		return nil, false
	}
	key, err := compact(raw)
	if err != nil || bytes.Equal(key, nullValue) {
		return nil, false
	}
	return key, true
}

// ValueKey returns the index key a query value is looked up with.
func ValueKey(value interface{}) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "encoding index value")
	}
	return compact(raw)
}

func compact(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeOne decodes a stored record into dest.
func DecodeOne(raw []byte, dest interface{}) error {
	if dest == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(raw, dest), "decoding record")
}

// DecodeList decodes stored records, in order, into dest which must point to a slice.
// dest always ends up as a non-nil slice.
func DecodeList(raws [][]byte, dest interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return errors.New("destination must be a pointer to a slice")
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, raw := range raws {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')
	rv.Elem().Set(reflect.MakeSlice(rv.Elem().Type(), 0, len(raws)))
	return errors.Wrap(json.Unmarshal(buf.Bytes(), dest), "decoding records")
}

// Itob encodes an id as an 8-byte big endian key, so keys sort like ids.
func Itob(id int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// Btoi decodes a key produced by Itob.
func Btoi(b []byte) int {
	return int(binary.BigEndian.Uint64(b))
}

// EntryKey is the key of a non-unique index entry: the value key, a 0x00 separator, then the id.
// JSON encodings never contain a raw 0x00 byte.
func EntryKey(valueKey []byte, id int) []byte {
	k := make([]byte, 0, len(valueKey)+9)
	k = append(k, valueKey...)
	k = append(k, 0)
	return append(k, Itob(id)...)
}

// EntryPrefix is the prefix shared by every non-unique entry of valueKey.
func EntryPrefix(valueKey []byte) []byte {
	k := make([]byte, 0, len(valueKey)+1)
	k = append(k, valueKey...)
	return append(k, 0)
}
