package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amezhanin/skinstore/internal/service"

	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type SkinsController struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

func NewSkinsController(catalog service.CatalogService, logger *zap.Logger) *SkinsController {
	return &SkinsController{
		catalog: catalog,
		logger:  logger,
	}
}

// GetSkins answers from cache in one body when warm, and otherwise streams
// the fetched batches as chunked JSON, closing the array when the fetch
// task signals completion.
func (c *SkinsController) GetSkins(w http.ResponseWriter, r *http.Request) {
	result, err := c.catalog.GetCatalog(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrCacheUnavailable) {
			http.Error(w, "Catalog temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		c.logger.Error("Failed to get catalog", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if result.Cached {
		render.JSON(w, r, map[string]interface{}{"data": result.Items})
		return
	}

	c.streamCatalog(w, result.Stream)
}

func (c *SkinsController) streamCatalog(w http.ResponseWriter, stream <-chan service.CatalogEvent) {
	flusher, _ := w.(http.Flusher)

	started := false
	wroteItem := false

	for event := range stream {
		switch {
		case event.Err != nil:
			if !started {
				http.Error(w, "Failed to fetch catalog", http.StatusInternalServerError)
				return
			}
			// Headers are out already, the stream just ends short.
			c.logger.Warn("Catalog stream aborted", zap.Error(event.Err))
			return

		case event.Done:
			if !started {
				c.startStream(w)
			}
			w.Write([]byte("]}"))
			if flusher != nil {
				flusher.Flush()
			}
			return

		default:
			if !started {
				c.startStream(w)
				started = true
			}
			for _, item := range event.Items {
				raw, err := json.Marshal(item)
				if err != nil {
					c.logger.Error("Failed to encode catalog item", zap.Error(err))
					continue
				}
				if wroteItem {
					w.Write([]byte(","))
				}
				w.Write(raw)
				wroteItem = true
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (c *SkinsController) startStream(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"data":[`))
}
