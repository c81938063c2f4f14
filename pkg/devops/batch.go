package devops

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxBatchSize is the service ceiling on ids per work item request.
	DefaultMaxBatchSize = 500
	// DefaultMaxURLLength is the longest request address the service accepts.
	DefaultMaxURLLength = 2000

	// IDsParam is the query parameter carrying the comma-joined id list.
	IDsParam = "ids"
)

// BatchURLFactory builds the request address for one batch of ids. The ids
// must be carried in the IDsParam query parameter.
type BatchURLFactory func(ids []int) *URLBuilder

// BatchFetchFunc performs one batch request and decodes its items.
type BatchFetchFunc[T any] func(ctx context.Context, url string) ([]T, error)

// BatchOptions bounds the size of each batch request.
type BatchOptions struct {
	MaxBatchSize int
	MaxURLLength int
	Logger       *logrus.Entry
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.MaxBatchSize <= 0 {
		o.MaxBatchSize = DefaultMaxBatchSize
	}
	if o.MaxURLLength <= 0 {
		o.MaxURLLength = DefaultMaxURLLength
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
	return o
}

// PlanBatches partitions ids into requests of at most MaxBatchSize ids, then
// halves any request whose address is longer than MaxURLLength until every
// request fits. An empty id list yields no requests.
func PlanBatches(ids []int, opts BatchOptions, factory BatchURLFactory) ([]*URLBuilder, error) {
	opts = opts.withDefaults()
	if len(ids) == 0 {
		return nil, nil
	}

	var builders []*URLBuilder
	for _, c := range chunk(ids, opts.MaxBatchSize) {
		builders = append(builders, factory(c))
	}

	for pass := 1; ; pass++ {
		split := false
		next := make([]*URLBuilder, 0, len(builders))

		for _, b := range builders {
			length := b.Len()
			if length <= opts.MaxURLLength {
				next = append(next, b)
				continue
			}

			raw, ok := b.QueryParam(IDsParam)
			if !ok {
				return nil, ErrMissingQueryValue
			}
			batchIDs, err := parseIDs(raw)
			if err != nil {
				return nil, fmt.Errorf("recover batch ids: %w", err)
			}
			if len(batchIDs) <= 1 {
				return nil, fmt.Errorf("%w: %d > %d", ErrURLTooLong, length, opts.MaxURLLength)
			}

			half := (len(batchIDs) + 1) / 2
			opts.Logger.WithFields(logrus.Fields{
				"pass":       pass,
				"ids":        len(batchIDs),
				"url_length": length,
			}).Debug("Splitting over-length batch")

			next = append(next, factory(batchIDs[:half]), factory(batchIDs[half:]))
			split = true
		}

		builders = next
		if !split {
			break
		}
	}

	opts.Logger.WithFields(logrus.Fields{
		"ids":     len(ids),
		"batches": len(builders),
	}).Debug("Planned batch requests")

	return builders, nil
}

// FetchAll plans the batches for ids and issues them concurrently. The first
// failure cancels the remaining requests and is returned without any partial
// results. Items are concatenated in request order.
func FetchAll[T any](ctx context.Context, ids []int, opts BatchOptions, factory BatchURLFactory, fetch BatchFetchFunc[T]) ([]T, error) {
	builders, err := PlanBatches(ids, opts, factory)
	if err != nil {
		return nil, err
	}
	if len(builders) == 0 {
		return []T{}, nil
	}

	results := make([][]T, len(builders))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range builders {
		u := b.String()
		g.Go(func() error {
			items, err := fetch(gctx, u)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []T
	for _, items := range results {
		all = append(all, items...)
	}
	if all == nil {
		all = []T{}
	}
	return all, nil
}

func chunk(ids []int, size int) [][]int {
	var chunks [][]int
	for i := 0; i < len(ids); i += size {
		end := min(i+size, len(ids))
		chunks = append(chunks, ids[i:end])
	}
	return chunks
}

// JoinIDs renders ids the way the ids query parameter expects them.
func JoinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func parseIDs(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
