// This file reads and writes data dictionaries as JSONL: one typed entry
// per line, written atomically.
package sqlite

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// Dictionary entry kinds.
const (
	entryTable        = "table"
	entryField        = "field"
	entryLink         = "link"
	entryLinkField    = "linkfield"
	entryCatalog      = "catalog"
	entryCatalogValue = "catalogvalue"
)

// dictionaryEntry is one line of a dictionary file.
type dictionaryEntry struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// linkFieldEntry carries a link field together with the identity of its link.
type linkFieldEntry struct {
	InfoAreaID       string `json:"infoAreaId"`
	TargetInfoAreaID string `json:"targetInfoAreaId"`
	LinkID           int    `json:"linkId"`
	types.LinkFieldInfo
}

// ReadDictionaryJSONL loads a data dictionary file. Malformed lines and
// entries of unknown kind are skipped. Fields and links are attached to
// their table, which is created when the file does not declare it first.
func ReadDictionaryJSONL(path string) (*types.DataDictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	b := newDictionaryBuilder()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e dictionaryEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		b.add(e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return b.dict, nil
}

type dictionaryBuilder struct {
	dict   *types.DataDictionary
	tables map[string]int
}

func newDictionaryBuilder() *dictionaryBuilder {
	return &dictionaryBuilder{dict: &types.DataDictionary{}, tables: make(map[string]int)}
}

func (b *dictionaryBuilder) table(infoAreaID string) *types.TableInfo {
	i, ok := b.tables[infoAreaID]
	if !ok {
		b.dict.Tables = append(b.dict.Tables, types.TableInfo{InfoAreaID: infoAreaID})
		i = len(b.dict.Tables) - 1
		b.tables[infoAreaID] = i
	}
	return &b.dict.Tables[i]
}

func (b *dictionaryBuilder) add(e dictionaryEntry) {
	switch e.Kind {
	case entryTable:
		var t types.TableInfo
		if json.Unmarshal(e.Data, &t) != nil || t.InfoAreaID == "" {
			return
		}
		dst := b.table(t.InfoAreaID)
		dst.RootInfoAreaID = t.RootInfoAreaID
		dst.Name = t.Name
		dst.HasLookup = t.HasLookup
		dst.Fields = append(dst.Fields, t.Fields...)
		dst.Links = append(dst.Links, t.Links...)
	case entryField:
		var f types.FieldInfo
		if json.Unmarshal(e.Data, &f) != nil || f.InfoAreaID == "" {
			return
		}
		t := b.table(f.InfoAreaID)
		t.Fields = append(t.Fields, f)
	case entryLink:
		var l types.LinkInfo
		if json.Unmarshal(e.Data, &l) != nil || l.InfoAreaID == "" {
			return
		}
		t := b.table(l.InfoAreaID)
		t.Links = append(t.Links, l)
	case entryLinkField:
		lf := linkFieldEntry{LinkFieldInfo: types.LinkFieldInfo{SourceFieldID: -1, DestFieldID: -1}}
		if json.Unmarshal(e.Data, &lf) != nil {
			return
		}
		t, ok := b.dict.Table(lf.InfoAreaID)
		if !ok {
			return
		}
		for i := range t.Links {
			l := &t.Links[i]
			if l.TargetInfoAreaID == lf.TargetInfoAreaID && l.LinkID == lf.LinkID {
				l.LinkFields = append(l.LinkFields, lf.LinkFieldInfo)
				return
			}
		}
	case entryCatalog:
		var c types.CatalogInfo
		if json.Unmarshal(e.Data, &c) == nil {
			b.dict.Catalogs = append(b.dict.Catalogs, c)
		}
	case entryCatalogValue:
		var v types.CatalogValue
		if json.Unmarshal(e.Data, &v) == nil {
			b.dict.CatalogValues = append(b.dict.CatalogValues, v)
		}
	}
}

// WriteDictionaryJSONL writes dict to path through a temp file in the same
// directory that is synced and renamed into place.
func WriteDictionaryJSONL(path string, dict *types.DataDictionary) error {
	lines, err := dictionaryLines(dict)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dictionary-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			return fail(fmt.Errorf("writing entry: %w", err))
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail(fmt.Errorf("writing newline: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// dictionaryLines flattens dict into entries: each table followed by its
// fields, links and link fields, then catalogs and catalog values.
func dictionaryLines(dict *types.DataDictionary) ([][]byte, error) {
	var lines [][]byte
	add := func(kind string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s entry: %w", kind, err)
		}
		line, err := json.Marshal(dictionaryEntry{Kind: kind, Data: data})
		if err != nil {
			return fmt.Errorf("encoding %s entry: %w", kind, err)
		}
		lines = append(lines, line)
		return nil
	}

	for _, t := range dict.Tables {
		head := t
		head.Fields, head.Links = nil, nil
		if err := add(entryTable, head); err != nil {
			return nil, err
		}
		for _, f := range t.Fields {
			f.InfoAreaID = t.InfoAreaID
			if err := add(entryField, f); err != nil {
				return nil, err
			}
		}
		for _, l := range t.Links {
			l.InfoAreaID = t.InfoAreaID
			fields := l.LinkFields
			l.LinkFields = nil
			if err := add(entryLink, l); err != nil {
				return nil, err
			}
			for _, lf := range fields {
				entry := linkFieldEntry{
					InfoAreaID:       l.InfoAreaID,
					TargetInfoAreaID: l.TargetInfoAreaID,
					LinkID:           l.LinkID,
					LinkFieldInfo:    lf,
				}
				if err := add(entryLinkField, entry); err != nil {
					return nil, err
				}
			}
		}
	}
	for _, c := range dict.Catalogs {
		if err := add(entryCatalog, c); err != nil {
			return nil, err
		}
	}
	for _, v := range dict.CatalogValues {
		if err := add(entryCatalogValue, v); err != nil {
			return nil, err
		}
	}
	return lines, nil
}
