package availability

import (
	"context"
	"github.com/ariefcatur/go-rental-scheduling/internal/scheduling"
	"golang.org/x/sync/errgroup"
)

// Line is one item requirement of a quotation.
type Line struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type LineResult struct {
	Line
	Result    Result `json:"result"`
	Shortfall int    `json:"shortfall"`
	Error     string `json:"error,omitempty"`
}

// lineConcurrency bounds parallel lookups for one quotation.
const lineConcurrency = 4

// CheckLines evaluates every line over iv. A line whose lookup fails carries
// the error in its result; the other lines are still evaluated.
func (c *Calculator) CheckLines(ctx context.Context, iv scheduling.Interval, lines []Line) []LineResult {
	out := make([]LineResult, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lineConcurrency)
	for i, l := range lines {
		i, l := i, l
		g.Go(func() error {
			out[i] = LineResult{Line: l}
			res, err := c.Check(gctx, Query{ItemID: l.ItemID, Interval: iv})
			if err != nil {
				out[i].Error = err.Error()
				return nil
			}
			out[i].Result = res
			out[i].Shortfall = max(l.Quantity-res.Available, 0)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
