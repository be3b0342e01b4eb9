package merge

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/resolve-cli/internal/model"
)

// All merges independent groups concurrently. Groups share nothing but the
// read-only trust catalog, so fan-out needs no synchronization beyond
// collecting results. Output order matches input order regardless of
// worker count.
func All(ctx context.Context, c *Coordinator, groups []model.EntityGroup, workers int) ([]*model.MergedEntity, error) {
	if workers <= 0 {
		workers = 1
	}

	results := make([]*model.MergedEntity, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, group := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ent, err := c.Merge(group)
			if err != nil {
				return err
			}
			results[i] = ent
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
