package convert

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/dataprep-cli/internal/utils"
)

// WriteCSV writes a header of input then target names followed by one row per item.
func WriteCSV(w io.Writer, fm *FeatureMatrix) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, fm.NumInputs+fm.NumOutputs)
	header = append(header, fm.InputNames...)
	header = append(header, fm.TargetNames...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(header))
	for i, it := range fm.Items {
		k := 0
		for _, v := range it.Input {
			rec[k] = strconv.FormatFloat(v, 'g', -1, 64)
			k++
		}
		for _, v := range it.Target {
			rec[k] = strconv.FormatFloat(v, 'g', -1, 64)
			k++
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSONL writes one {"input":[...],"target":[...]} object per line.
func WriteJSONL(w io.Writer, fm *FeatureMatrix) error {
	enc := json.NewEncoder(w)
	for i, it := range fm.Items {
		if err := enc.Encode(it); err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
	}
	return nil
}

// WriteFile picks the format from the extension (.jsonl/.ndjson or CSV
// otherwise) and writes atomically.
func WriteFile(path string, fm *FeatureMatrix) error {
	var buf bytes.Buffer
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		err = WriteJSONL(&buf, fm)
	default:
		err = WriteCSV(&buf, fm)
	}
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
