package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/deckrec/deckrec/internal/recommend"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"version":      s.version,
		"uptime":       time.Since(s.started).Seconds(),
		"buckets":      len(s.snap.Buckets),
		"cards":        len(s.snap.Catalog),
		"generated_at": s.snap.GeneratedAt,
	})
}

type bucketJSON struct {
	Key                 string  `json:"key"`
	HeroCode            string  `json:"hero_code"`
	HeroName            string  `json:"hero_name"`
	Aspect              string  `json:"aspect,omitempty"`
	RecordCount         int     `json:"record_count"`
	WeightedRecordCount float64 `json:"weighted_record_count"`
	MostRecent          string  `json:"most_recent,omitempty"`
}

func (s *Server) handleBuckets(w http.ResponseWriter, r *http.Request) {
	out := make([]bucketJSON, 0, len(s.snap.Buckets))
	for _, key := range s.snap.BucketKeys() {
		b := s.snap.Buckets[key]
		out = append(out, bucketJSON{
			Key:                 key,
			HeroCode:            b.HeroCode,
			HeroName:            b.HeroName,
			Aspect:              b.Aspect,
			RecordCount:         b.RecordCount,
			WeightedRecordCount: b.WeightedRecordCount,
			MostRecent:          b.MostRecent,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(out),
		"buckets": out,
	})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Bucket     string   `json:"bucket"`
		Selection  []string `json:"selection"`
		Exclusions []string `json:"exclusions"`
		TopN       int      `json:"top_n"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Bucket == "" {
		s.writeError(w, http.StatusBadRequest, "bucket required")
		return
	}

	recs, err := recommend.Recommend(s.snap, req.Bucket, req.Selection, req.Exclusions,
		recommend.Options{TopN: req.TopN})
	if err != nil {
		if errors.Is(err, recommend.ErrBucketNotFound) || errors.Is(err, recommend.ErrNoData) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"bucket":  req.Bucket,
		"count":   len(recs),
		"results": recs,
	})
}
