package report

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"time"

	"github.com/gosimple/slug"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/summary/domain"
)

const timeLayout = "2006-01-02 15:04 MST"

// Renderer turns hourly summaries into a downloadable document.
type Renderer interface {
	RenderHourlySummaries(ctx context.Context, summaries []domain.HourlySummary, generatedAt time.Time) (io.Reader, error)
}

type PDFRenderer struct{}

func New() Renderer {
	return &PDFRenderer{}
}

// Filename is the attachment name for a report generated at the given time.
func Filename(generatedAt time.Time) string {
	return slug.Make("orderdesk hourly summaries "+generatedAt.UTC().Format("2006-01-02")) + ".pdf"
}

func (r *PDFRenderer) RenderHourlySummaries(ctx context.Context, summaries []domain.HourlySummary, generatedAt time.Time) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Hourly order summaries", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Generated "+generatedAt.UTC().Format(timeLayout), props.Text{
			Size:  9,
			Align: align.Right,
			Top:   4,
		}),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 9}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(10,
		text.NewCol(4, "Window start", header),
		text.NewCol(4, "Window end", header),
		text.NewCol(2, "Orders", headerRight),
		text.NewCol(2, "Total", headerRight),
	)

	cell := props.Text{Size: 9}
	cellRight := props.Text{Size: 9, Align: align.Right}
	var (
		orders int64
		amount = decimal.Zero
	)
	for _, summary := range summaries {
		orders += summary.TotalOrders
		amount = amount.Add(summary.TotalAmount)
		m.AddRow(8,
			text.NewCol(4, summary.WindowStart.UTC().Format(timeLayout), cell),
			text.NewCol(4, summary.WindowEnd.UTC().Format(timeLayout), cell),
			text.NewCol(2, strconv.FormatInt(summary.TotalOrders, 10), cellRight),
			text.NewCol(2, summary.TotalAmount.StringFixed(2), cellRight),
		)
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, strconv.FormatInt(orders, 10), headerRight),
		text.NewCol(2, amount.StringFixed(2), headerRight),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
