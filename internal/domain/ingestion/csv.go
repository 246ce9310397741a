package ingestion

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/moldex-io/moldex/pkg/errors"
)

// csvRow is one parsed CSV row paired with its zero-based index in the
// file (header excluded), so row errors can report original positions.
type csvRow struct {
	index  int
	record []string
}

// readHeader parses just the header row from data, per spec §4.4 phase 1's
// InvalidFormat rejection for content that is not valid CSV.
func readHeader(data []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, errors.InvalidParam("not a valid CSV file: " + err.Error())
	}
	return header, nil
}

// countDataRows counts the data rows (excluding header) in data.
func countDataRows(data []byte) (int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	if _, err := r.Read(); err != nil {
		return 0, errors.InvalidParam("not a valid CSV file: " + err.Error())
	}
	count := 0
	for {
		if _, err := r.Read(); err == io.EOF {
			break
		} else if err != nil {
			return 0, errors.InvalidParam("not a valid CSV file: " + err.Error())
		}
		count++
	}
	return count, nil
}

// previewRows reads up to n data rows after the header.
func previewRows(data []byte, n int) (header []string, rows [][]string, err error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err = r.Read()
	if err != nil {
		return nil, nil, errors.InvalidParam("not a valid CSV file: " + err.Error())
	}
	for i := 0; i < n; i++ {
		rec, readErr := r.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, nil, errors.InvalidParam("not a valid CSV file: " + readErr.Error())
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// chunkReader streams data rows from a CSV body in bounded-size chunks, so
// the pipeline never holds more than one chunk's rows in memory at once,
// per spec §4.4 phase 4.
type chunkReader struct {
	r         *csv.Reader
	header    []string
	chunkSize int
	nextIndex int
}

func newChunkReader(data []byte, chunkSize int) (*chunkReader, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, errors.InvalidParam("not a valid CSV file: " + err.Error())
	}
	return &chunkReader{r: r, header: header, chunkSize: chunkSize}, nil
}

// next returns the next chunk of rows, or (nil, false, nil) at end of file.
func (c *chunkReader) next() ([]csvRow, bool, error) {
	var rows []csvRow
	for len(rows) < c.chunkSize {
		rec, err := c.r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, errors.InvalidParam("not a valid CSV file: " + err.Error())
		}
		rows = append(rows, csvRow{index: c.nextIndex, record: rec})
		c.nextIndex++
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows, true, nil
}

// asRecord converts row into a column-name -> cell-value map using header.
func asRecord(header []string, row csvRow) map[string]string {
	rec := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(row.record) {
			rec[h] = row.record[i]
		}
	}
	return rec
}
