package export

import (
	"fmt"
	"math"
	"strings"
)

// Clip is one EDL event cut from the annotated video.
type Clip struct {
	Name      string
	MediaPath string
	StartMs   int
	EndMs     int
}

const defaultFrameRate = 30.0

// GenerateEDL writes a CMX3600 edit list placing clips back to back on the
// record timeline. Clips that do not move forward in time are left out.
func GenerateEDL(clips []Clip, title string, frameRate float64) string {
	if frameRate <= 0 {
		frameRate = defaultFrameRate
	}
	fps := int(math.Round(frameRate))
	if title == "" {
		title = "annotations"
	}

	lines := []string{"TITLE: " + title}
	if isDropFrame(frameRate) {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordMs := 0
	n := 0
	for _, clip := range clips {
		length := clip.EndMs - clip.StartMs
		if length <= 0 {
			continue
		}
		n++

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", n, "AX", "V",
				msToTimecode(clip.StartMs, fps), msToTimecode(clip.EndMs, fps),
				msToTimecode(recordMs, fps), msToTimecode(recordMs+length, fps)),
			"* FROM CLIP NAME:  "+clip.Name,
		)
		if clip.MediaPath != "" {
			lines = append(lines, "* MEDIA PATH:  "+clip.MediaPath)
		}
		recordMs += length
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func isDropFrame(rate float64) bool {
	return math.Abs(rate-29.97) < 0.01 || math.Abs(rate-59.94) < 0.01
}

func msToTimecode(ms int, fps int) string {
	frames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	ff := frames % fps
	secs := frames / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60, ff)
}
