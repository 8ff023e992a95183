package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrManifestNotFound  = errors.New("manifest not found")
	ErrManifestMalformed = errors.New("manifest malformed")
)

const (
	KeyApp           = "app"
	KeyResourceFile  = "resourceFile"
	KeyReadyToDeploy = "readytodeploy"

	// Column name used by older manifests for the resource file list.
	legacyKeyResourceFile = "yaml"

	resourceFileSeparator = "|"
)

type field struct {
	key   string
	value json.RawMessage
}

// Entry is one application in the release manifest.
type Entry struct {
	App           string
	ResourceFile  string
	ReadyToDeploy bool

	// All key/value pairs of the original object, in document order.
	fields   []field
	readyKey string
}

// ResourceFiles returns the resource files of the entry in the order they are listed.
func (e Entry) ResourceFiles() []string {
	files := make([]string, 0)
	for _, f := range strings.Split(e.ResourceFile, resourceFileSeparator) {
		f = strings.TrimSpace(f)
		if len(f) > 0 {
			files = append(files, f)
		}
	}
	return files
}

// Fields returns every scalar field of the entry keyed by its original name.
// Objects and arrays are left out.
func (e Entry) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, len(e.fields))
	for _, f := range e.fields {
		var v interface{}
		if err := json.Unmarshal(f.value, &v); err != nil {
			continue
		}
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			continue
		}
		fields[f.key] = v
	}
	return fields
}

// Manifest is the ordered list of entries making up a release manifest.
type Manifest struct {
	Entries []Entry

	trailingNewline bool
}

// Apps returns the application names of the given entries.
func Apps(entries []Entry) []string {
	apps := make([]string, len(entries))
	for i := range entries {
		apps[i] = entries[i].App
	}
	return apps
}

// Parse decodes a manifest document. The document is a JSON array of objects.
// Unknown fields are kept in order so that Encode can reproduce them verbatim.
func Parse(data []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrManifestMalformed, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("%w: expected an array of entries", ErrManifestMalformed)
	}

	m := &Manifest{
		Entries:         make([]Entry, 0),
		trailingNewline: bytes.HasSuffix(data, []byte("\n")),
	}
	seen := make(map[string]int)

	for i := 0; dec.More(); i++ {
		entry, err := parseEntry(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %s", ErrManifestMalformed, i+1, err)
		}
		if prev, ok := seen[entry.App]; ok {
			return nil, fmt.Errorf("%w: entry %d: app %q is already defined by entry %d", ErrManifestMalformed, i+1, entry.App, prev)
		}
		seen[entry.App] = i + 1
		m.Entries = append(m.Entries, *entry)
	}

	if _, err = dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrManifestMalformed, err)
	}
	if _, err = dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after entry list", ErrManifestMalformed)
	}

	return m, nil
}

func parseEntry(dec *json.Decoder) (*Entry, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("not an object")
	}

	entry := &Entry{
		fields: make([]field, 0),
	}

	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, err
		}
		key := tok.(string)

		var value json.RawMessage
		if err = dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("field %q: %s", key, err)
		}
		entry.fields = append(entry.fields, field{key: key, value: value})

		switch {
		case key == KeyApp:
			if err = json.Unmarshal(value, &entry.App); err != nil {
				return nil, fmt.Errorf("field %q must be a string", key)
			}
		case strings.EqualFold(key, KeyResourceFile), key == legacyKeyResourceFile:
			if err = json.Unmarshal(value, &entry.ResourceFile); err != nil {
				return nil, fmt.Errorf("field %q must be a string", key)
			}
		case strings.EqualFold(key, KeyReadyToDeploy):
			entry.ReadyToDeploy, err = parseFlag(value)
			if err != nil {
				return nil, fmt.Errorf("field %q: %s", key, err)
			}
			entry.readyKey = key
		}
	}

	// closing brace
	if _, err = dec.Token(); err != nil {
		return nil, err
	}

	if len(strings.TrimSpace(entry.App)) == 0 {
		return nil, fmt.Errorf("missing required field %q", KeyApp)
	}
	if len(entry.ResourceFiles()) == 0 {
		return nil, fmt.Errorf("app %q: missing required field %q", entry.App, KeyResourceFile)
	}

	return entry, nil
}

func parseFlag(value json.RawMessage) (bool, error) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return false, err
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case json.Number:
		switch t.String() {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
	case string:
		b, err := strconv.ParseBool(t)
		if err == nil {
			return b, nil
		}
	case nil:
		return false, nil
	}
	return false, fmt.Errorf("expected 0, 1, true or false; found %s", string(value))
}

// clearedFlag returns the cleared representation of a readiness flag, keeping its JSON type.
func clearedFlag(value json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(value))
	switch {
	case trimmed == "true" || trimmed == "false":
		return json.RawMessage("false")
	case strings.HasPrefix(trimmed, `"`):
		var s string
		_ = json.Unmarshal(value, &s)
		if _, err := strconv.Atoi(s); err == nil {
			return json.RawMessage(`"0"`)
		}
		return json.RawMessage(`"false"`)
	default:
		return json.RawMessage("0")
	}
}

// Encode serializes the manifest with two-space indentation, reproducing every field
// of every entry in its original order.
func (m *Manifest) Encode() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('[')
	for i, entry := range m.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, f := range entry.fields {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := encodeKey(buf, f.key); err != nil {
				return nil, err
			}
			buf.WriteByte(':')
			buf.Write(f.value)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')

	out := &bytes.Buffer{}
	if err := json.Indent(out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if m.trailingNewline {
		out.WriteByte('\n')
	}
	return out.Bytes(), nil
}

// encodeKey writes key as a JSON string without escaping HTML characters.
func encodeKey(buf *bytes.Buffer, key string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(key); err != nil {
		return err
	}
	// Encode terminates each value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
