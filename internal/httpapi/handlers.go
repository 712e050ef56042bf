package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"execteam/internal/agentregistry"
	"execteam/internal/coordinator"
	"execteam/internal/retrieval"
	"execteam/internal/tasks"
)

func (s *Server) handleChatSubmit(c echo.Context) error {
	var req chatSubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	messageID, err := s.coordinator.Submit(c.Request().Context(), coordinator.SubmitInput{
		MessageText: req.Message,
		RoleHint:    agentregistry.Role(req.RoleHint),
		UseKB:       req.UseKB,
		ModelHint:   req.ModelHint,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusAccepted, ok(chatSubmitResponse{MessageID: messageID}))
}

func (s *Server) handleChatPoll(c echo.Context) error {
	snap, err := s.coordinator.Poll(c.Param("message_id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ok(chatPollResponse{
		MessageID: snap.MessageID, Status: string(snap.Status), TargetRole: string(snap.TargetRole),
		AssignedAgentID: snap.AssignedAgentID, ResponseText: snap.ResponseText, Error: snap.Error,
		CreatedAt: snap.CreatedAt, CompletedAt: snap.CompletedAt,
	}))
}

func (s *Server) handleChatCancel(c echo.Context) error {
	if err := s.coordinator.Cancel(c.Param("message_id")); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ok(nil))
}

func (s *Server) handleKBCreateDocument(c echo.Context) error {
	var req kbDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	sourceType := retrieval.SourceText
	if req.SourceType != "" {
		sourceType = retrieval.SourceType(req.SourceType)
	}

	doc, err := s.index.AddDocument(c.Request().Context(), retrieval.AddDocumentInput{
		SourceType: sourceType, SourceName: req.SourceName, Content: req.Content, Metadata: req.Metadata,
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, ok(toDocumentResponse(doc)))
}

func (s *Server) handleKBUpdateDocument(c echo.Context) error {
	var req kbDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doc, err := s.index.UpdateDocument(c.Request().Context(), c.Param("document_id"), req.Content, req.Metadata)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ok(toDocumentResponse(doc)))
}

func (s *Server) handleKBDeleteDocument(c echo.Context) error {
	if err := s.index.DeleteDocument(c.Request().Context(), c.Param("document_id")); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func toDocumentResponse(doc *retrieval.Document) kbDocumentResponse {
	return kbDocumentResponse{
		ID: doc.ID, SourceType: string(doc.SourceType), SourceName: doc.SourceName,
		Version: doc.Version, Metadata: doc.Metadata,
	}
}

func (s *Server) handleKBSearch(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	k := queryParamInt(c, "k", 10)
	ws := queryParamFloat(c, "semantic_weight", 0.7)
	wk := queryParamFloat(c, "keyword_weight", 0.3)

	results, err := s.index.Search(c.Request().Context(), query, k, ws, wk, nil)
	if err != nil {
		return mapError(err)
	}
	out := make([]kbSearchResponse, 0, len(results))
	for _, r := range results {
		out = append(out, kbSearchResponse{
			ChunkID: r.ChunkID, DocumentID: r.DocumentID, Content: r.Content,
			Score: r.Score, SearchType: string(r.SearchType),
		})
	}
	return c.JSON(http.StatusOK, ok(out))
}

func (s *Server) handleListAgents(c echo.Context) error {
	snaps := s.registry.All()
	out := make([]agentResponse, 0, len(snaps))
	for _, a := range snaps {
		out = append(out, agentResponse{
			ID: a.ID, Role: string(a.Role), Name: a.Name, Status: string(a.Status),
			TotalQueries: a.Metrics.TotalQueries, Successful: a.Metrics.Successful, Failed: a.Metrics.Failed,
			AverageLatencyMS: float64(a.Metrics.AverageLatency().Milliseconds()),
		})
	}
	return c.JSON(http.StatusOK, ok(out))
}

func (s *Server) handleListTasks(c echo.Context) error {
	out := make([]taskResponse, 0)
	for _, t := range s.taskMgr.AllTasks(nil) {
		out = append(out, toTaskResponse(t))
	}
	return c.JSON(http.StatusOK, ok(out))
}

func (s *Server) handleGetTask(c echo.Context) error {
	t, err := s.taskMgr.GetTask(c.Param("task_id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ok(toTaskResponse(t)))
}

func toTaskResponse(t *tasks.Task) taskResponse {
	return taskResponse{
		ID: t.ID, Title: t.Title, Description: t.Description, AssignedTo: t.AssignedTo,
		CreatedBy: t.CreatedBy, Priority: t.Priority, Status: string(t.Status), Progress: t.Progress,
		CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt, CompletedAt: t.CompletedAt,
		Dependencies: t.Dependencies, Metadata: t.Metadata,
	}
}

func queryParamInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryParamFloat(c echo.Context, name string, def float64) float64 {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
