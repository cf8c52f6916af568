package playback

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/heimdex/heimdex-annotator/internal/domain"
)

type PlaybackService interface {
	Resolve(categoryID, video string) (string, error)
	ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error
}

// Server serves the videos stored under <videosDir>/<categoryID>/.
type Server struct {
	videosDir string
	logger    *slog.Logger
}

func NewServer(videosDir string, logger *slog.Logger) *Server {
	return &Server{videosDir: videosDir, logger: logger}
}

// Resolve finds the file of a video in a category directory. video is
// either a file name or a file stem.
func (s *Server) Resolve(categoryID, video string) (string, error) {
	if !safeSegment(categoryID) || !safeSegment(video) {
		return "", domain.NewValidationError("video", "invalid category or video name")
	}
	dir := filepath.Join(s.videosDir, categoryID)

	direct := filepath.Join(dir, video)
	if info, err := os.Stat(direct); err == nil && info.Mode().IsRegular() {
		return direct, nil
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", domain.NewNotFound("video", categoryID+"/"+video)
	}
	if err != nil {
		return "", fmt.Errorf("read video directory: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == video {
			return filepath.Join(dir, name), nil
		}
	}
	return "", domain.NewNotFound("video", categoryID+"/"+video)
}

func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`) && !strings.ContainsRune(s, 0)
}

// ContentType sniffs the file header and falls back to the extension.
func ContentType(filePath string) string {
	if mt, err := mimetype.DetectFile(filePath); err == nil && mt.String() != "application/octet-stream" {
		return mt.String()
	}
	if ct := mime.TypeByExtension(filepath.Ext(filePath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	size := stat.Size()

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", ContentType(filePath))

	rng, err := ParseRange(r.Header.Get("Range"), size)
	switch {
	case err == ErrUnsatisfiable:
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case err == ErrInvalidRange:
		// malformed ranges are ignored and the whole file is sent
		rng = nil
	case err != nil:
		return err
	}

	if rng == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			s.copy(w, file, size)
		}
		return nil
	}

	if _, err := file.Seek(rng.Start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(rng.ContentLength(), 10))
	w.Header().Set("Content-Range", rng.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method != http.MethodHead {
		s.copy(w, file, rng.ContentLength())
	}
	return nil
}

func (s *Server) copy(w io.Writer, src io.Reader, n int64) {
	if _, err := io.CopyN(w, src, n); err != nil && s.logger != nil {
		// clients drop connections while seeking
		s.logger.Debug("video stream interrupted", "error", err)
	}
}
