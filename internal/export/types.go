package export

import (
	"fmt"
	"strings"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
	FormatEDL  Format = "edl"
)

// ParseFormat accepts a format name case-insensitively. An empty name means json.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXML, FormatEDL:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) Ext() string {
	return "." + string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXML:
		return "application/xml; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Options tune formats that need more than the intervals themselves.
type Options struct {
	Title     string
	FrameRate float64
	MediaPath string
	// EventName resolves display names for EDL clip names. Optional.
	EventName func(categoryID, eventID string) string
}

type ExportRequest struct {
	ProjectName string  `json:"project_name"`
	Format      string  `json:"format"`
	FrameRate   float64 `json:"frame_rate"`
	OutputDir   string  `json:"output_dir"`
}

type ExportResponse struct {
	Status        string `json:"status"`
	Format        string `json:"format"`
	OutputPath    string `json:"output_path"`
	IntervalCount int    `json:"interval_count"`
}
