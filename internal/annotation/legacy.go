package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/heimdex/heimdex-annotator/internal/catalog"
)

// legacyAnnotation accepts every annotation shape found in older files:
// instant-only records with time or seconds, match logs with a "H - MM:SS"
// gameTime and a label, and millisecond positions.
type legacyAnnotation struct {
	ID                string         `json:"id"`
	Time              *float64       `json:"time"`
	Seconds           *float64       `json:"seconds"`
	GameTime          string         `json:"gameTime"`
	Position          any            `json:"position"`
	Label             string         `json:"label"`
	CategoryID        string         `json:"categoryId"`
	EventID           string         `json:"eventId"`
	Fields            map[string]any `json:"fields"`
	Type              RecordType     `json:"type"`
	StartAnnotationID string         `json:"startAnnotationId"`
}

type legacyFile struct {
	VideoName   string             `json:"video_name"`
	CategoryID  string             `json:"category_id"`
	Annotations []legacyAnnotation `json:"annotations"`
	Records     []legacyAnnotation `json:"records"`
	Videos      []struct {
		Path        string             `json:"path"`
		Annotations []legacyAnnotation `json:"annotations"`
	} `json:"videos"`
}

// LegacyImport is the result of converting an older annotation file.
type LegacyImport struct {
	Video   string
	Records []Record
	Skipped int
}

var ErrUnsupportedLegacy = errors.New("unsupported annotation file structure")

// ParseLegacy converts an older annotation file, or a stored annotation set
// dumped as JSON, into records. Files holding
// several videos are matched on the file stem of each video path; video may
// be empty when the file holds a single video. Annotations without any
// usable time are skipped and counted.
func ParseLegacy(r io.Reader, categoryID, video string) (*LegacyImport, error) {
	var f legacyFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode annotation file: %w", err)
	}

	if f.CategoryID != "" && categoryID == "" {
		categoryID = f.CategoryID
	}

	var src []legacyAnnotation
	switch {
	case len(f.Videos) > 0:
		idx := -1
		for i, v := range f.Videos {
			if (video == "" && len(f.Videos) == 1) || VideoStem(v.Path) == video {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("video %q not found in annotation file", video)
		}
		video = VideoStem(f.Videos[idx].Path)
		src = f.Videos[idx].Annotations
	case f.Annotations != nil:
		if video == "" {
			video = VideoStem(f.VideoName)
		}
		src = f.Annotations
	case f.Records != nil:
		src = f.Records
	default:
		return nil, ErrUnsupportedLegacy
	}

	out := &LegacyImport{Video: video, Records: make([]Record, 0, len(src))}
	for _, a := range src {
		t, ok := a.seconds()
		if !ok {
			out.Skipped++
			continue
		}

		rec := Record{
			ID:                a.ID,
			Time:              t,
			CategoryID:        a.CategoryID,
			EventID:           a.EventID,
			Fields:            a.Fields,
			Type:              a.Type,
			StartAnnotationID: a.StartAnnotationID,
		}
		if rec.CategoryID == "" {
			rec.CategoryID = categoryID
		}
		if rec.EventID == "" {
			rec.EventID = catalog.Slug(a.Label)
		}
		if rec.EventID == "" {
			out.Skipped++
			continue
		}
		if !rec.Type.Valid() {
			rec.Type = TypeInstant
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

func (a legacyAnnotation) seconds() (float64, bool) {
	switch {
	case a.Time != nil:
		return *a.Time, true
	case a.Seconds != nil:
		return *a.Seconds, true
	case a.GameTime != "":
		t, err := ParseGameTime(a.GameTime)
		return t, err == nil
	}

	switch p := a.Position.(type) {
	case float64:
		return p / 1000, true
	case string:
		ms, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		return ms / 1000, err == nil
	}
	return 0, false
}

var (
	gameTimeLong  = regexp.MustCompile(`^\s*(\d+)\s*-\s*(\d{2}):(\d{2}):(\d{2})\s*$`)
	gameTimeShort = regexp.MustCompile(`^\s*(\d+)\s*-\s*(\d+):(\d+)\s*$`)
)

// ParseGameTime converts "H - MM:SS" or "H - HH:MM:SS" match clock strings
// to seconds. The leading half number does not offset the result.
func ParseGameTime(s string) (float64, error) {
	if m := gameTimeLong.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[2])
		mins, _ := strconv.Atoi(m[3])
		sec, _ := strconv.Atoi(m[4])
		return float64(h*3600 + mins*60 + sec), nil
	}
	if m := gameTimeShort.FindStringSubmatch(s); m != nil {
		mins, _ := strconv.Atoi(m[2])
		sec, _ := strconv.Atoi(m[3])
		return float64(mins*60 + sec), nil
	}
	return 0, fmt.Errorf("invalid game time %q", s)
}

// VideoStem returns the file name of a video path without its extension.
func VideoStem(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}
