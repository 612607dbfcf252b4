// Package report produces the artifacts exported from the dashboard: the
// post CSV and the weekly performance report.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ibeckermayer/xdash/internal/store"
	"github.com/ibeckermayer/xdash/internal/types"
)

// BOM marks the CSV as UTF-8 for spreadsheet applications.
const BOM = "\ufeff"

// TimeLayout formats the 日時 column.
const TimeLayout = "2006/01/02 15:04"

// CSVHeader is the first row of every export.
var CSVHeader = []string{"日時", "テキスト", "型", "いいね", "RT", "リプライ", "ランク"}

// CSVName is the date-stamped export filename, e.g. report_2026-10-17.csv.
func CSVName(at time.Time) string {
	return store.ExportName("report", at, ".csv")
}

// WriteCSV writes the BOM, the header and one row per post.
func WriteCSV(w io.Writer, posts []types.Post) error {
	if _, err := io.WriteString(w, BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, p := range posts {
		row := []string{
			p.Timestamp.Format(TimeLayout),
			p.Text,
			p.Category,
			strconv.Itoa(p.Likes),
			strconv.Itoa(p.Retweets),
			strconv.Itoa(p.Replies),
			string(p.Rank),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV returns the encoded export.
func CSV(posts []types.Post) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, posts); err != nil {
		return nil, fmt.Errorf("failed to encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportCSV writes the posts to dir under CSVName and returns the path.
func ExportCSV(dir string, posts []types.Post, at time.Time) (string, error) {
	data, err := CSV(posts)
	if err != nil {
		return "", err
	}
	return store.SaveExport(dir, CSVName(at), data)
}
