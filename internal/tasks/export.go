package tasks

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/hugh/taskhub/internal/database/models"
)

const (
	utf8BOM = "\xEF\xBB\xBF"

	exportTimeLayout = "2006-01-02 15:04:05"

	// rows between flushes while streaming
	flushEvery = 100
)

var exportHeader = []string{"ID", "Title", "Description", "Status", "Priority", "Due Date", "Created At", "Updated At"}

// ExportFilename names an export taken at now, e.g. tasks_20260102_150405.csv
func ExportFilename(now time.Time) string {
	return "tasks_" + now.Format("20060102_150405") + ".csv"
}

// CSVWriter streams tasks as a BOM-prefixed UTF-8 CSV document so
// spreadsheet tools detect the encoding.
type CSVWriter struct {
	w    *csv.Writer
	rows int
}

// NewCSVWriter writes the BOM and header row immediately
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return nil, fmt.Errorf("writing bom: %w", err)
	}
	cw := &CSVWriter{w: csv.NewWriter(w)}
	if err := cw.w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return cw, nil
}

func (c *CSVWriter) Write(task models.Task) error {
	if err := c.w.Write(exportRow(task)); err != nil {
		return fmt.Errorf("writing task %s: %w", task.ID, err)
	}
	c.rows++
	if c.rows%flushEvery == 0 {
		return c.Flush()
	}
	return nil
}

func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

func exportRow(task models.Task) []string {
	description := ""
	if task.Description != nil {
		description = *task.Description
	}
	due := ""
	if task.DueDate != nil {
		due = task.DueDate.String()
	}
	return []string{
		task.ID.String(),
		task.Title,
		description,
		string(task.Status),
		string(task.Priority),
		due,
		task.CreatedAt.UTC().Format(exportTimeLayout),
		task.UpdatedAt.UTC().Format(exportTimeLayout),
	}
}
