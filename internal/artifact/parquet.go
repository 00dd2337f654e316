// Package artifact serializes a reconciled table into the two durable
// output formats: a columnar Parquet snapshot for later re-querying and a
// multi-sheet workbook for end-user download.
package artifact

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/jmarroquin/cuadre/internal/recon"
)

// WriteParquet encodes the reconciled table as a Parquet file. Output is
// byte-identical for identical input: the rows arrive already sorted by
// composite key and the writer embeds no timestamps.
// Parameters:
//   - records: reconciled table, sorted by composite key.
// Returns:
//   - []byte: Parquet file contents.
//   - error: non-nil if encoding fails.
func WriteParquet(records []recon.ReconciledRecord) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := parquet.NewGenericWriter[recon.ReconciledRecord](buf)

	if len(records) > 0 {
		if _, err := w.Write(records); err != nil {
			return nil, fmt.Errorf("failed to write parquet rows: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadParquet decodes a Parquet snapshot back into reconciled records.
// Parameters:
//   - data: Parquet file contents.
// Returns:
//   - []recon.ReconciledRecord: decoded rows in file order.
//   - error: non-nil if decoding fails.
func ReadParquet(data []byte) ([]recon.ReconciledRecord, error) {
	rows, err := parquet.Read[recon.ReconciledRecord](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet file: %w", err)
	}
	return rows, nil
}
