package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-annotator/internal/catalog"
	"github.com/heimdex/heimdex-annotator/internal/domain"
	"github.com/heimdex/heimdex-annotator/internal/logging"
)

const searchLimit = 20

func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens, cfg.Logger))

		r.Get("/categories", listCategoriesHandler(cfg))
		r.Post("/categories", createCategoryHandler(cfg))
		r.Put("/categories/{categoryId}", saveCategoryHandler(cfg))
		r.Delete("/categories/{categoryId}", deleteCategoryHandler(cfg))
		r.Post("/categories/{categoryId}/events", addEventHandler(cfg))
		r.Get("/categories/{categoryId}/events/{eventId}/fields", eventFieldsHandler(cfg))
		r.Get("/events/search", searchEventsHandler(cfg))

		r.Route("/videos/{categoryId}/{video}", func(r chi.Router) {
			r.Post("/open", openVideoHandler(cfg))
			r.Get("/annotations", listAnnotationsHandler(cfg))
			r.Post("/annotations/toggle", toggleHandler(cfg))
			r.Post("/annotations/instant", instantHandler(cfg))
			r.Patch("/annotations/{id}", editAnnotationHandler(cfg))
			r.Delete("/annotations/{id}", deleteAnnotationHandler(cfg))
			r.Get("/active", activeHandler(cfg))
			r.Get("/markers", markersHandler(cfg))
			r.Get("/intervals", intervalsHandler(cfg))
			r.Get("/check", checkHandler(cfg))
			r.Post("/save", saveHandler(cfg))
			r.Get("/export", downloadExportHandler(cfg))
			r.Post("/export", writeExportHandler(cfg))
			r.Get("/file", playbackHandler(cfg))
			r.Head("/file", playbackHandler(cfg))
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := cfg.Version
		if version == "" {
			version = "0.1.0"
		}
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func listCategoriesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := cfg.CatalogService.Categories(r.Context())
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, CategoriesResponse{Categories: emptyIfNil(categories)})
	}
}

func createCategoryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req catalog.CategoryInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		category, err := cfg.CatalogService.CreateCategory(r.Context(), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, category)
	}
}

func saveCategoryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req catalog.CategorySetup
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		req.ID = chi.URLParam(r, "categoryId")

		category, err := cfg.CatalogService.SaveCategory(r.Context(), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, category)
	}
}

func deleteCategoryHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.CatalogService.DeleteCategory(r.Context(), chi.URLParam(r, "categoryId")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func addEventHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req catalog.EventInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		event, err := cfg.CatalogService.AddEvent(r.Context(), chi.URLParam(r, "categoryId"), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, event)
	}
}

func eventFieldsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID := chi.URLParam(r, "categoryId")
		eventID := chi.URLParam(r, "eventId")

		if cfg.CatalogService.FindCategory(categoryID) == nil {
			writeServiceError(w, cfg.Logger, domain.NewNotFound("category", categoryID))
			return
		}
		event := cfg.CatalogService.FindEvent(categoryID, eventID)
		if event == nil {
			writeServiceError(w, cfg.Logger, domain.NewNotFound("event", eventID))
			return
		}

		WriteJSON(w, http.StatusOK, FieldsResponse{
			CategoryID: categoryID,
			EventID:    eventID,
			Fields:     emptyIfNil(event.CustomFields),
		})
	}
}

func searchEventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matches := cfg.CatalogService.SearchEvents(r.URL.Query().Get("q"), searchLimit)
		WriteJSON(w, http.StatusOK, SearchResponse{Results: emptyIfNil(matches)})
	}
}

func playbackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := videoKey(r)
		path, err := cfg.PlaybackServer.Resolve(key.CategoryID, key.Video)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		if err := cfg.PlaybackServer.ServeFile(w, r, path); err != nil {
			cfg.Logger.Error("playback error", "error", err, "video", key.String())
		}
	}
}
