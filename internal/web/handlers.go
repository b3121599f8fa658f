package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"time"

	"love-piece/internal/composer"
	"love-piece/internal/domain"
	"love-piece/internal/logging"
)

type apiError struct {
	Error string `json:"error"`
}

// generateRequest accepts imageData as one string or a list of strings.
type generateRequest struct {
	ImageData    json.RawMessage `json:"imageData"`
	Tone         string          `json:"tone"`
	Relationship string          `json:"relationship"`
}

type generateResponse struct {
	Text string `json:"text"`
	Tone string `json:"tone"`
}

type option struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	BGM         string `json:"bgm,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context(), s.logger)
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, apiError{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}

	images, err := decodeImageData(body.ImageData)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if s.generator == nil {
		s.writeError(w, r, &domain.ConfigurationError{Setting: "generator"})
		return
	}

	res, err := s.generator.Generate(r.Context(), composer.Request{
		Images:       images,
		Tone:         body.Tone,
		Relationship: body.Relationship,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	logger.Debug("generate ok", "tone", res.Tone, "images", len(images))
	writeJSON(w, http.StatusOK, generateResponse{Text: res.Text, Tone: string(res.Tone)})
}

// decodeImageData returns nil for a missing, null or empty value so the
// composer reports it as missing image data.
func decodeImageData(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '"':
		var one string
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, invalidImageData()
		}
		if one == "" {
			return nil, nil
		}
		return []string{one}, nil
	case '[':
		var many []string
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, invalidImageData()
		}
		return many, nil
	}
	return nil, invalidImageData()
}

func invalidImageData() error {
	return &domain.ValidationError{Field: "imageData", Message: "invalid image data format"}
}

func (s *Server) handleBGM(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if _, ok := s.bgmFiles[name]; !ok || s.bgm == nil {
		http.NotFound(w, r)
		return
	}

	data, err := fs.ReadFile(s.bgm, name)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Warn("bgm read failed", "file", name, "err", err)
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}

func (s *Server) handleRelationships(w http.ResponseWriter, r *http.Request) {
	rels := s.catalog.Relationships()
	out := make([]option, 0, len(rels))
	for _, rel := range rels {
		out = append(out, option{Key: rel.Key, Label: rel.Label, BGM: rel.BGM})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTones(w http.ResponseWriter, r *http.Request) {
	tones := domain.Tones()
	out := make([]option, 0, len(tones))
	for _, t := range tones {
		out = append(out, option{Key: string(t), Label: t.Label(), Description: t.Description()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	kind := domain.Classify(err)

	logger := logging.FromContext(r.Context(), s.logger)
	if kind == domain.KindValidation {
		logger.Info("generate rejected", "status", status, "err", err)
	} else {
		logger.Error("generate failed", "status", status, "kind", kind.String(), "err", err)
	}

	writeJSON(w, status, apiError{Error: domain.UserMessage(err)})
}

// StatusFor maps a generation error onto an HTTP status. Upstream error
// statuses are forwarded as-is; failures without one become 502, or 504
// when the deadline ran out.
func StatusFor(err error) int {
	switch domain.Classify(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUpstream:
		var ue *domain.UpstreamError
		errors.As(err, &ue)
		if ue.StatusCode >= 300 && ue.StatusCode <= 599 {
			return ue.StatusCode
		}
		if isTimeout(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
