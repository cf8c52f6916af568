package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/domain"
	"github.com/heimdex/heimdex-annotator/internal/export"
)

func exportOptions(cfg ServerConfig, key annotation.VideoKey, title string, frameRate float64) export.Options {
	opts := export.Options{
		Title:     title,
		FrameRate: frameRate,
		EventName: func(categoryID, eventID string) string {
			if ev := cfg.CatalogService.FindEvent(categoryID, eventID); ev != nil {
				return ev.Name
			}
			return ""
		},
	}
	if cfg.PlaybackServer != nil {
		if path, err := cfg.PlaybackServer.Resolve(key.CategoryID, key.Video); err == nil {
			opts.MediaPath = path
		}
	}
	return opts
}

func downloadExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			writeServiceError(w, cfg.Logger, domain.NewValidationError("format", err.Error()))
			return
		}

		sess, ok := session(cfg, w, r)
		if !ok {
			return
		}
		key := sess.Key()

		data, err := export.Complete(sess.Intervals(), format, exportOptions(cfg, key, key.Video, 0))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		name := export.SanitizeName(annotation.VideoStem(key.Video), 120)
		if name == "" {
			name = "annotations"
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+format.Ext()))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func writeExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		format, err := export.ParseFormat(req.Format)
		if err != nil {
			writeServiceError(w, cfg.Logger, domain.NewValidationError("format", err.Error()))
			return
		}
		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		sess, ok := session(cfg, w, r)
		if !ok {
			return
		}
		key := sess.Key()

		name := req.ProjectName
		if name == "" {
			name = annotation.VideoStem(key.Video)
		}
		intervals := sess.Intervals()
		data, err := export.Complete(intervals, format, exportOptions(cfg, key, name, req.FrameRate))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		outputPath, err := export.WriteFile(req.OutputDir, name, format, data)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		cfg.Logger.Info("annotations exported", "video", key.String(), "format", format, "intervals", len(intervals))

		WriteJSON(w, http.StatusOK, export.ExportResponse{
			Status:        "ok",
			Format:        string(format),
			OutputPath:    outputPath,
			IntervalCount: len(intervals),
		})
	}
}
