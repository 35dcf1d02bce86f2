package variance

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/grid"
)

// Result is a thresholded Pair with its decomposition.
type Result struct {
	Pair
	Contribution
	Driver Driver `json:"dominant_driver"`
}

// Attributor is the shared attribution step: grid the records at one
// granularity, compare two dates, keep the entities whose profit delta crosses
// the threshold and decompose each of them.
type Attributor struct {
	Threshold   Threshold
	Key         grid.KeyFunc
	Classifier  Classifier
	Concurrency int
}

// Run attributes the move between dayNew and dayOld. Results keep grid
// (first-seen) entity order regardless of how the workers finish.
func (a *Attributor) Run(ctx context.Context, records []domain.MetricRecord, dayNew, dayOld time.Time) ([]Result, error) {
	key := a.Key
	if key == nil {
		key = grid.ByOffer
	}
	g := grid.Build(records, key, []time.Time{dayNew, dayOld})

	var crossed []Pair
	for _, p := range Compare(g, dayNew, dayOld) {
		if a.Threshold.Crossed(p.Delta) {
			crossed = append(crossed, p)
		}
	}
	if len(crossed) == 0 {
		return nil, nil
	}

	cl := a.Classifier
	if cl.Dominance == 0 {
		cl = DefaultClassifier
	}

	results := make([]Result, len(crossed))
	eg, ctx := errgroup.WithContext(ctx)
	if a.Concurrency > 0 {
		eg.SetLimit(a.Concurrency)
	}
	for i := range crossed {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := crossed[i]
			c := Decompose(p.Old.Revenue, p.Old.Profit, p.New.Revenue, p.New.Profit)
			results[i] = Result{Pair: p, Contribution: c, Driver: cl.Classify(c)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
