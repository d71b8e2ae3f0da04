package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"ollama-gateway/internal/translate"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Message string `json:"message"`
}

type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type modelList struct {
	Object string       `json:"object"`
	Data   []modelEntry `json:"data"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return jsonWithLength(c, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: "v1",
		Message: "Ollama gateway is running",
	})
}

func (s *Server) handleFavicon(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleUnknownPath(c echo.Context) error {
	return requestError{
		Status:  http.StatusNotFound,
		Type:    typeNotFound,
		Message: "Endpoint not found: " + c.Request().URL.Path,
	}
}

func (s *Server) handleModels(c echo.Context) error {
	names, err := s.backend.ListModels(c.Request().Context())
	if err != nil {
		return serverError("Failed to get model list: %v", err)
	}

	now := time.Now().Unix()
	list := modelList{Object: "list", Data: make([]modelEntry, 0, len(names))}
	for _, name := range names {
		list.Data = append(list.Data, modelEntry{
			ID:      name,
			Object:  "model",
			Created: now,
			OwnedBy: "ollama",
		})
	}

	return jsonWithLength(c, http.StatusOK, list)
}

func (s *Server) handleChatCompletions(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}

	var req translate.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest("Invalid JSON in request: %v", err)
	}

	genReq := translate.BuildGenerateRequest(req, s.cfg.Ollama.DefaultModel)
	ctx := c.Request().Context()

	if !req.Stream {
		raw, err := s.backend.GenerateOnce(ctx, genReq)
		if err != nil {
			return serverError("Proxy error: %v", err)
		}

		resp, err := translate.CompleteChat(raw, genReq.Model)
		if err != nil {
			return serverError("%v", err)
		}
		return jsonWithLength(c, http.StatusOK, resp)
	}

	stream, err := s.backend.Generate(ctx, genReq)
	if err != nil {
		return serverError("Proxy error: %v", err)
	}
	defer stream.Close()

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	c.Response().WriteHeader(http.StatusOK)

	emitted, err := translate.StreamChat(c.Response(), stream, genReq.Model, s.cfg.Ollama.ChunkSize)
	s.metrics.AddStreamChunks(emitted)
	if err != nil {
		// Headers are out; all that is left is to stop reading the backend.
		slog.Error("streaming aborted", "err", err, "chunks", emitted)
	}
	return nil
}

// handlePassthrough relays any other POST verbatim to the same path on the
// backend, untranslated in both directions.
func (s *Server) handlePassthrough(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}

	data, err := s.backend.Forward(c.Request().Context(), c.Request().URL.Path, body)
	if err != nil {
		return serverError("Proxy error: %v", err)
	}

	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(data)))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

func readBody(c echo.Context) ([]byte, error) {
	req := c.Request()
	defer req.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes))
	if err != nil {
		return nil, badRequest("read request body: %v", err)
	}
	return body, nil
}
