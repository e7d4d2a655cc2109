package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	summarydomain "github.com/smallbiznis/orderdesk/internal/summary/domain"
	"github.com/smallbiznis/orderdesk/internal/summary/report"
	"github.com/smallbiznis/orderdesk/pkg/db/pagination"
)

type hourlySummaryResponse struct {
	ID          string    `json:"id"`
	TotalOrders int64     `json:"total_orders"`
	TotalAmount string    `json:"total_amount"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Timestamp   time.Time `json:"timestamp"`
}

func newHourlySummaryResponse(summary summarydomain.HourlySummary) hourlySummaryResponse {
	return hourlySummaryResponse{
		ID:          summary.ID.String(),
		TotalOrders: summary.TotalOrders,
		TotalAmount: summary.TotalAmount.StringFixed(2),
		WindowStart: summary.WindowStart,
		WindowEnd:   summary.WindowEnd,
		Timestamp:   summary.Timestamp,
	}
}

func (s *Server) ListHourlySummaries(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.summarySvc.List(c.Request.Context(), actor, query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := make([]hourlySummaryResponse, 0, len(resp.Summaries))
	for _, summary := range resp.Summaries {
		data = append(data, newHourlySummaryResponse(summary))
	}
	c.JSON(http.StatusOK, gin.H{
		"data":            data,
		"next_page_token": resp.NextPageToken,
		"has_more":        resp.HasMore,
	})
}

// DownloadHourlySummariesPDF renders the newest page of summaries.
func (s *Server) DownloadHourlySummariesPDF(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	resp, err := s.summarySvc.List(ctx, actor, pagination.Pagination{PageSize: pagination.MaxPageSize})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	generatedAt := s.clock.Now()
	doc, err := s.reports.RenderHourlySummaries(ctx, resp.Summaries, generatedAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+report.Filename(generatedAt)+`"`)
	c.Data(http.StatusOK, "application/pdf", body)
}
