package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/domain"
)

// CSVHeader is shared by interval and instant rows.
var CSVHeader = []string{"time", "categoryId", "eventId"}

type intervalDoc struct {
	CategoryID string         `json:"categoryId"`
	EventID    string         `json:"eventId"`
	Fields     map[string]any `json:"fields"`
	StartTime  float64        `json:"startTime"`
	EndTime    float64        `json:"endTime"`
	Duration   float64        `json:"duration"`
}

// Complete serializes complete intervals. Instant records and open intervals
// never reach this point; an empty input is an *domain.EmptyExportError.
func Complete(intervals []annotation.Interval, format Format, opts Options) ([]byte, error) {
	if len(intervals) == 0 {
		return nil, &domain.EmptyExportError{Format: string(format)}
	}

	switch format {
	case FormatJSON:
		return completeJSON(intervals)
	case FormatCSV:
		return completeCSV(intervals)
	case FormatXML:
		return completeXML(intervals)
	case FormatEDL:
		return []byte(GenerateEDL(clipsFor(intervals, opts), opts.Title, opts.FrameRate)), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

func completeJSON(intervals []annotation.Interval) ([]byte, error) {
	docs := make([]intervalDoc, len(intervals))
	for i, iv := range intervals {
		fields := iv.Fields
		if fields == nil {
			fields = map[string]any{}
		}
		docs[i] = intervalDoc{
			CategoryID: iv.CategoryID,
			EventID:    iv.EventID,
			Fields:     fields,
			StartTime:  iv.StartTime,
			EndTime:    iv.EndTime,
			Duration:   iv.Duration,
		}
	}
	return json.MarshalIndent(docs, "", "  ")
}

func completeCSV(intervals []annotation.Interval) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return nil, err
	}
	for _, iv := range intervals {
		if err := w.Write(IntervalRow(iv)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// IntervalRow is the CSV row of a complete interval: "start-end,category,event".
func IntervalRow(iv annotation.Interval) []string {
	return []string{TimeSpan(iv.StartTime, iv.EndTime), iv.CategoryID, iv.EventID}
}

// InstantRow is the CSV row of an instant record: "time,category,event".
func InstantRow(r annotation.Record) []string {
	return []string{formatSeconds(r.Time), r.CategoryID, r.EventID}
}

func TimeSpan(start, end float64) string {
	return formatSeconds(start) + "-" + formatSeconds(end)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type xmlDoc struct {
	XMLName     xml.Name        `xml:"annotations"`
	Annotations []xmlAnnotation `xml:"annotation"`
}

type xmlAnnotation struct {
	Time       string     `xml:"time,attr"`
	CategoryID string     `xml:"categoryId,attr"`
	EventID    string     `xml:"eventId,attr"`
	Duration   string     `xml:"duration,attr"`
	Fields     []xmlField `xml:"field"`
}

type xmlField struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

func completeXML(intervals []annotation.Interval) ([]byte, error) {
	doc := xmlDoc{Annotations: make([]xmlAnnotation, len(intervals))}
	for i, iv := range intervals {
		a := xmlAnnotation{
			Time:       TimeSpan(iv.StartTime, iv.EndTime),
			CategoryID: iv.CategoryID,
			EventID:    iv.EventID,
			Duration:   formatSeconds(iv.Duration),
		}
		for _, name := range slices.Sorted(maps.Keys(iv.Fields)) {
			a.Fields = append(a.Fields, xmlField{Name: name, Value: fieldText(iv.Fields[name])})
		}
		doc.Annotations[i] = a
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

func fieldText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return formatSeconds(x)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func clipsFor(intervals []annotation.Interval, opts Options) []Clip {
	clips := make([]Clip, 0, len(intervals))
	for _, iv := range intervals {
		name := iv.EventID
		if opts.EventName != nil {
			if n := opts.EventName(iv.CategoryID, iv.EventID); n != "" {
				name = n
			}
		}
		clips = append(clips, Clip{
			Name:      SanitizeName(name, 160),
			MediaPath: opts.MediaPath,
			StartMs:   int(math.Round(iv.StartTime * 1000)),
			EndMs:     int(math.Round(iv.EndTime * 1000)),
		})
	}
	return clips
}
