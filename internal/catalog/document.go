// file: internal/catalog/document.go
// version: 1.0.0
// guid: 6c0e2f8b-4d1a-4e97-8f3b-2a5d7c9e1b46

package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/models"
)

// Catalog encodings. They match the config values.
const (
	FormatJSON   = "json"
	FormatModule = "module"
)

// Placement decides where an upserted entry lands in the catalog.
type Placement int

const (
	// PlacementPreserve keeps an existing id where it is and appends new ids.
	PlacementPreserve Placement = iota
	// PlacementFirst moves the upserted entry to the front.
	PlacementFirst
)

// ParsePlacement maps a config value to a Placement. Unknown values preserve.
func ParsePlacement(s string) Placement {
	if strings.EqualFold(strings.TrimSpace(s), "first") {
		return PlacementFirst
	}
	return PlacementPreserve
}

func (p Placement) String() string {
	if p == PlacementFirst {
		return "first"
	}
	return "preserve"
}

const defaultModuleHeader = "// Vinyl shelf album catalog, the single source of truth for the site.\n" +
	"// To add an album, run: vinyl-shelf add-album \"Artist\" \"Album\"\n"

var (
	moduleDecl    = regexp.MustCompile(`(?m)^[ \t]*(?:export[ \t]+)?const[ \t]+CATALOG[ \t]*=[ \t]*`)
	moduleTrailer = regexp.MustCompile(`^\s*;?\s*(?:export\s+default\s+CATALOG\s*;?\s*)?$`)
)

// Known entry keys in serialized order. Anything else on an existing entry
// is kept after these.
var knownKeys = []string{
	"id", "external_id", "source", "name", "artist",
	"release_date", "label", "images", "tracks", "credits",
}

// Keys written by older catalog generators for the provider id. They are
// dropped when an entry is rebuilt with an external_id.
var legacyExternalIDKeys = map[string]bool{"tidalId": true, "externalId": true}

type rawEntry struct {
	id  string
	raw json.RawMessage
}

// Document is a parsed catalog. Entries are held as compact raw JSON so
// entries that are not touched by a merge are written back unchanged.
type Document struct {
	header  string
	entries []rawEntry
}

// MergeResult describes what an Upsert did.
type MergeResult struct {
	ID                string
	Index             int
	Created           bool
	CreditsCarried    bool
	DuplicatesRemoved int
}

// New returns an empty catalog.
func New() *Document {
	return &Document{}
}

// Parse decodes catalog bytes in the given format. Whitespace-only input is
// an empty catalog. A module file whose declaration cannot be found, but
// whose content is a bare array, is read as JSON.
func Parse(data []byte, format string) (*Document, error) {
	doc := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	start := 0
	if format == FormatModule {
		loc := moduleDecl.FindIndex(data)
		switch {
		case loc != nil:
			doc.header = string(data[:loc[0]])
			start = loc[1]
		case bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")):
		default:
			return nil, &ParseError{Reason: "no `const CATALOG = [...]` declaration found"}
		}
	}

	entries, consumed, err := parseArray(data[start:])
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) && pe.Offset > 0 {
			pe.Offset += int64(start)
		}
		return nil, err
	}
	rest := data[start+int(consumed):]
	if format == FormatModule {
		if !moduleTrailer.Match(rest) {
			return nil, &ParseError{Offset: int64(start) + consumed, Reason: "unexpected content after the catalog array"}
		}
	} else if len(bytes.TrimSpace(rest)) != 0 {
		return nil, &ParseError{Offset: int64(start) + consumed, Reason: "unexpected content after the catalog array"}
	}

	doc.entries = entries
	return doc, nil
}

// parseArray reads one JSON array of objects from the front of data and
// returns the entries and the number of bytes consumed.
func parseArray(data []byte) ([]rawEntry, int64, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	syntaxErr := func(err error) error {
		pe := &ParseError{Offset: dec.InputOffset(), Reason: "invalid JSON", Err: err}
		var se *json.SyntaxError
		if errors.As(err, &se) {
			pe.Offset = se.Offset
		}
		return pe
	}

	tok, err := dec.Token()
	if err != nil {
		return nil, 0, syntaxErr(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, 0, &ParseError{Offset: dec.InputOffset(), Reason: "catalog is not an array"}
	}

	var entries []rawEntry
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, 0, syntaxErr(err)
		}
		id, err := entryID(raw)
		if err != nil {
			return nil, 0, &ParseError{
				Offset: dec.InputOffset(),
				Reason: fmt.Sprintf("entry %d: %v", len(entries), err),
			}
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, 0, syntaxErr(err)
		}
		entries = append(entries, rawEntry{id: id, raw: buf.Bytes()})
	}
	if _, err := dec.Token(); err != nil {
		return nil, 0, syntaxErr(err)
	}
	return entries, dec.InputOffset(), nil
}

func entryID(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", errors.New("not an object")
	}
	var probe struct {
		ID *string `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", fmt.Errorf("id is not a string: %w", err)
	}
	if probe.ID == nil || strings.TrimSpace(*probe.ID) == "" {
		return "", errors.New("missing id")
	}
	return *probe.ID, nil
}

// Len returns the number of entries, duplicates included.
func (d *Document) Len() int { return len(d.entries) }

// IDs returns entry ids in catalog order.
func (d *Document) IDs() []string {
	ids := make([]string, len(d.entries))
	for i, e := range d.entries {
		ids[i] = e.id
	}
	return ids
}

// Index returns the position of the first entry with id, or -1.
func (d *Document) Index(id string) int {
	for i, e := range d.entries {
		if e.id == id {
			return i
		}
	}
	return -1
}

// Raw returns the stored JSON of the first entry with id.
func (d *Document) Raw(id string) (json.RawMessage, bool) {
	i := d.Index(id)
	if i < 0 {
		return nil, false
	}
	return d.entries[i].raw, true
}

// Entry decodes the first entry with id.
func (d *Document) Entry(id string) (models.AlbumEntry, bool, error) {
	raw, ok := d.Raw(id)
	if !ok {
		return models.AlbumEntry{}, false, nil
	}
	var entry models.AlbumEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return models.AlbumEntry{}, true, fmt.Errorf("failed to decode entry %q: %w", id, err)
	}
	return entry, true, nil
}

// Entries decodes every entry in catalog order.
func (d *Document) Entries() ([]models.AlbumEntry, error) {
	out := make([]models.AlbumEntry, 0, len(d.entries))
	for _, e := range d.entries {
		var entry models.AlbumEntry
		if err := json.Unmarshal(e.raw, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode entry %q: %w", e.id, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Upsert validates entry and merges it into the document. An existing
// entry with the same id has its known fields replaced; its credits are
// carried forward unless entry supplies credits, and keys this package
// does not know about are kept in their original order. Later entries
// with the same id are removed.
func (d *Document) Upsert(entry models.AlbumEntry, placement Placement) (MergeResult, error) {
	if err := entry.Validate(); err != nil {
		return MergeResult{}, err
	}
	res := MergeResult{ID: entry.ID, Index: d.Index(entry.ID)}
	res.Created = res.Index < 0

	var existing json.RawMessage
	if !res.Created {
		existing = d.entries[res.Index].raw
	}
	merged, carried, err := mergeEntry(entry, existing)
	if err != nil {
		return MergeResult{}, err
	}
	res.CreditsCarried = carried

	kept := d.entries[:0:0]
	for i, e := range d.entries {
		if e.id == entry.ID && i != res.Index {
			res.DuplicatesRemoved++
			continue
		}
		kept = append(kept, e)
	}
	d.entries = kept

	updated := rawEntry{id: entry.ID, raw: merged}
	switch {
	case placement == PlacementFirst:
		if !res.Created {
			d.entries = append(d.entries[:res.Index], d.entries[res.Index+1:]...)
		}
		d.entries = append([]rawEntry{updated}, d.entries...)
		res.Index = 0
	case res.Created:
		d.entries = append(d.entries, updated)
		res.Index = len(d.entries) - 1
	default:
		d.entries[res.Index] = updated
	}
	return res, nil
}

type field struct {
	key   string
	value json.RawMessage
}

// objectFields reads the top-level keys of a JSON object in document order.
func objectFields(raw json.RawMessage) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("not an object")
	}
	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields = append(fields, field{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return fields, nil
}

func mergeEntry(entry models.AlbumEntry, existing json.RawMessage) (json.RawMessage, bool, error) {
	fresh, err := marshalNoEscape(entry)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode entry %q: %w", entry.ID, err)
	}
	freshFields, err := objectFields(fresh)
	if err != nil {
		return nil, false, err
	}

	var oldFields []field
	if existing != nil {
		if oldFields, err = objectFields(existing); err != nil {
			return nil, false, fmt.Errorf("failed to read existing entry %q: %w", entry.ID, err)
		}
	}
	oldValue := func(key string) (json.RawMessage, bool) {
		for _, f := range oldFields {
			if f.key == key {
				return f.value, true
			}
		}
		return nil, false
	}

	carried := false
	out := make([]field, 0, len(freshFields)+len(oldFields))
	for _, f := range freshFields {
		if f.key == "credits" && entry.Credits == nil {
			if v, ok := oldValue("credits"); ok && string(v) != "null" {
				f.value = v
				carried = true
			} else {
				f.value = json.RawMessage("[]")
			}
		}
		out = append(out, f)
	}

	known := make(map[string]bool, len(knownKeys))
	for _, k := range knownKeys {
		known[k] = true
	}
	for _, f := range oldFields {
		if known[f.key] || (entry.ExternalID != "" && legacyExternalIDKeys[f.key]) {
			continue
		}
		out = append(out, f)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range out {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(f.key)
		if err != nil {
			return nil, false, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := json.Compact(&buf, f.value); err != nil {
			return nil, false, fmt.Errorf("failed to compact %q: %w", f.key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), carried, nil
}

// marshalNoEscape encodes v without HTML escaping so names such as
// "Simon & Garfunkel" stay readable in the file.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Encode serializes the document. Entries are indented two spaces inside
// the array. The module encoding keeps the header found by Parse.
func (d *Document) Encode(format string) ([]byte, error) {
	var buf bytes.Buffer
	if format == FormatModule {
		header := d.header
		if strings.TrimSpace(header) == "" {
			header = defaultModuleHeader
		}
		buf.WriteString(header)
		if !strings.HasSuffix(header, "\n") {
			buf.WriteByte('\n')
		}
		buf.WriteString("const CATALOG = ")
	}

	if len(d.entries) == 0 {
		buf.WriteString("[]")
	} else {
		buf.WriteString("[\n")
		for i, e := range d.entries {
			buf.WriteString("  ")
			if err := json.Indent(&buf, e.raw, "  ", "  "); err != nil {
				return nil, fmt.Errorf("failed to encode entry %q: %w", e.id, err)
			}
			if i < len(d.entries)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString("]")
	}

	if format == FormatModule {
		buf.WriteString("\n\nexport default CATALOG\n")
	} else {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
