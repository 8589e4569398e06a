package segment

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/lattice"
)

// parquetColumnsKey is the parquet key/value metadata entry holding the
// column list, so snapshots keep declared kinds instead of re-inferring.
const parquetColumnsKey = "nestq.columns"

// fixtureFile is the YAML fixture layout.
//
//	name: nested
//	columns:
//	  - {name: nest, kind: nested}
//	rows:
//	  - {nest: {x: 100}}
type fixtureFile struct {
	Name    string           `yaml:"name"`
	Columns []fixtureColumn  `yaml:"columns"`
	Rows    []map[string]any `yaml:"rows"`
}

type fixtureColumn struct {
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"`
}

// parquetRow stores a whole row as one JSON document.
type parquetRow struct {
	Doc string `parquet:"doc"`
}

// LoadFile loads a table by file extension: .yaml/.yml, .jsonl,
// .jsonl.zst or .parquet. The table is named after the file unless the
// file names itself.
func LoadFile(path string) (*Table, error) {
	name := tableName(path)
	switch {
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixture: %w", err)
		}
		return ParseYAML(data, name)

	case strings.HasSuffix(path, ".jsonl"):
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadJSONL(f, name)

	case strings.HasSuffix(path, ".jsonl.zst"):
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadJSONLZstd(f, name)

	case strings.HasSuffix(path, ".parquet"):
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		return ReadParquet(f, info.Size(), name)
	}
	return nil, fmt.Errorf("unsupported table file %s (want .yaml, .jsonl, .jsonl.zst or .parquet)", path)
}

func tableName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

// ParseYAML decodes a YAML fixture. Without a columns list the columns are
// inferred from the rows.
func ParseYAML(data []byte, defaultName string) (*Table, error) {
	var ff fixtureFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if ff.Name == "" {
		ff.Name = defaultName
	}

	rows := make([]Row, len(ff.Rows))
	for i, raw := range ff.Rows {
		row, err := rowFromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("fixture %s: row %d: %w", ff.Name, i, err)
		}
		rows[i] = row
	}

	columns := InferColumns(rows)
	if len(ff.Columns) > 0 {
		columns = make([]lattice.ColumnInfo, len(ff.Columns))
		for i, c := range ff.Columns {
			columns[i] = lattice.ColumnInfo{Name: c.Name, Kind: lattice.ColumnKind(c.Kind)}
		}
	}
	return NewTable(ff.Name, columns, rows)
}

func rowFromGo(raw map[string]any) (Row, error) {
	row := make(Row, len(raw))
	for k, v := range raw {
		val, err := ir.FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", k, err)
		}
		row[k] = val
	}
	return row, nil
}

// ReadJSONL reads one JSON object per line. Blank lines are skipped.
// Columns are inferred.
func ReadJSONL(r io.Reader, name string) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var rows []Row
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		v, err := ir.ParseJSON(text)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, line, err)
		}
		obj, ok := v.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("%s line %d: row must be a JSON object", name, line)
		}
		rows = append(rows, Row(obj))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return NewTable(name, InferColumns(rows), rows)
}

// ReadJSONLZstd reads zstd-compressed JSON lines.
func ReadJSONLZstd(r io.Reader, name string) (*Table, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()
	return ReadJSONL(dec, name)
}

// WriteJSONL writes one compact JSON object per row. Null columns are omitted.
func WriteJSONL(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	for i := range t.Rows {
		b, err := rowDocument(t, i)
		if err != nil {
			return err
		}
		bw.Write(b)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteJSONLZstd writes zstd-compressed JSON lines.
func WriteJSONLZstd(w io.Writer, t *Table) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if err := WriteJSONL(enc, t); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func rowDocument(t *Table, i int) ([]byte, error) {
	obj := make(ir.Object, len(t.Rows[i]))
	for k, v := range t.Rows[i] {
		if !ir.IsNull(v) {
			obj[k] = v
		}
	}
	b, err := obj.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%s row %d: %w", t.Name, i, err)
	}
	return b, nil
}

// WriteParquet writes a parquet snapshot: one "doc" column holding each row
// as JSON, with the column list in the file metadata.
func WriteParquet(w io.Writer, t *Table) error {
	cols := make([]fixtureColumn, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = fixtureColumn{Name: c.Name, Kind: string(c.Kind)}
	}
	meta, err := json.Marshal(cols)
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}

	rows := make([]parquetRow, len(t.Rows))
	for i := range t.Rows {
		b, err := rowDocument(t, i)
		if err != nil {
			return err
		}
		rows[i] = parquetRow{Doc: string(b)}
	}

	writer := parquet.NewGenericWriter[parquetRow](w, parquet.KeyValueMetadata(parquetColumnsKey, string(meta)))
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	return writer.Close()
}

// ReadParquet reads a snapshot written by WriteParquet. Files without
// column metadata get inferred columns.
func ReadParquet(r io.ReaderAt, size int64, name string) (*Table, error) {
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[parquetRow](f)
	defer reader.Close()

	var rows []Row
	buf := make([]parquetRow, 64)
	for {
		n, err := reader.Read(buf)
		for i := range n {
			v, perr := ir.ParseJSON([]byte(buf[i].Doc))
			if perr != nil {
				return nil, fmt.Errorf("%s row %d: %w", name, len(rows), perr)
			}
			obj, ok := v.(ir.Object)
			if !ok {
				return nil, fmt.Errorf("%s row %d: document must be a JSON object", name, len(rows))
			}
			rows = append(rows, Row(obj))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet: %w", err)
		}
	}

	columns := InferColumns(rows)
	if meta, ok := f.Lookup(parquetColumnsKey); ok {
		var cols []fixtureColumn
		if err := json.Unmarshal([]byte(meta), &cols); err != nil {
			return nil, fmt.Errorf("parse %s metadata: %w", parquetColumnsKey, err)
		}
		columns = make([]lattice.ColumnInfo, len(cols))
		for i, c := range cols {
			columns[i] = lattice.ColumnInfo{Name: c.Name, Kind: lattice.ColumnKind(c.Kind)}
		}
	}
	return NewTable(name, columns, rows)
}
