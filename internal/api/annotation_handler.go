package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/domain"
)

func videoKey(r *http.Request) annotation.VideoKey {
	return annotation.VideoKey{
		CategoryID: pathParam(r, "categoryId"),
		Video:      pathParam(r, "video"),
	}
}

func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// session resolves the open session for the request's video, writing the
// error response itself when that fails.
func session(cfg ServerConfig, w http.ResponseWriter, r *http.Request) (*annotation.Session, bool) {
	sess, err := cfg.Annotations.Session(r.Context(), videoKey(r))
	if err != nil {
		writeServiceError(w, cfg.Logger, err)
		return nil, false
	}
	return sess, true
}

func openVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, warnings, err := cfg.Annotations.Open(r.Context(), videoKey(r))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		snap := sess.Snapshot()
		WriteJSON(w, http.StatusOK, OpenResponse{
			Records:  emptyIfNil(snap.Records),
			Active:   sess.Active(),
			Warnings: emptyIfNil(warnings),
		})
	}
}

func listAnnotationsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session(cfg, w, r)
		if !ok {
			return
		}
		items := sess.List(r.URL.Query().Get("event"))
		WriteJSON(w, http.StatusOK, AnnotationsResponse{Items: emptyIfNil(items)})
	}
}

func toggleHandler(cfg ServerConfig) http.HandlerFunc {
	return pointHandler(cfg, (*annotation.Session).Toggle)
}

func instantHandler(cfg ServerConfig) http.HandlerFunc {
	return pointHandler(cfg, (*annotation.Session).RecordInstant)
}

type pointAction func(*annotation.Session, context.Context, annotation.PointInput) (annotation.Record, error)

func pointHandler(cfg ServerConfig, action pointAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req annotation.PointInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		sess, ok := session(cfg, w, r)
		if !ok {
			return
		}

		rec, err := action(sess, r.Context(), req)
		saveErr, err := saveError(err)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, MutationResponse{Record: rec, SaveError: saveErr})
	}
}

func editAnnotationHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req annotation.EditInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		sess, ok := session(cfg, w, r)
		if !ok {
			return
		}

		rec, found, err := sess.Edit(r.Context(), chi.URLParam(r, "id"), req)
		saveErr, err := saveError(err)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if !found {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		WriteJSON(w, http.StatusOK, MutationResponse{Record: rec, SaveError: saveErr})
	}
}

func deleteAnnotationHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session(cfg, w, r)
		if !ok {
			return
		}

		_, err := sess.Delete(r.Context(), chi.URLParam(r, "id"))
		saveErr, err := saveError(err)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if saveErr != "" {
			WriteJSON(w, http.StatusOK, SaveResponse{Status: "unsaved", Records: len(sess.Snapshot().Records), SaveError: saveErr})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func activeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, ActiveResponse{Active: sess.Active()})
	}
}

func markersHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		duration, err := strconv.ParseFloat(r.URL.Query().Get("duration"), 64)
		if err != nil || duration <= 0 {
			writeServiceError(w, cfg.Logger, domain.NewValidationError("duration", "must be a positive number of seconds"))
			return
		}

		sess, ok := session(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, MarkersResponse{Markers: emptyIfNil(sess.Markers(duration))})
	}
}

func intervalsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, IntervalsResponse{Intervals: emptyIfNil(sess.Intervals())})
	}
}

func checkHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, CheckResponse{Warnings: emptyIfNil(sess.Check())})
	}
}

func saveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session(cfg, w, r)
		if !ok {
			return
		}
		if err := sess.Save(r.Context()); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SaveResponse{Status: "saved", Records: len(sess.Snapshot().Records)})
	}
}
