package job

import (
	"iter"

	"go.uber.org/zap"

	"github.com/ajitpratap0/oddcollector/pkg/logger"
	"github.com/ajitpratap0/oddcollector/pkg/models"
)

// Split cuts every list of lists into batches of at most chunkSize items,
// in order. Each batch is tagged with oddrn. A non-positive chunkSize keeps
// each list whole. An error from lists is passed through and ends the
// sequence.
func Split(lists iter.Seq2[*models.DataEntityList, error], oddrn string, chunkSize int, l *zap.Logger) iter.Seq2[*models.DataEntityList, error] {
	l = logger.OrNop(l)
	return func(yield func(*models.DataEntityList, error) bool) {
		for list, err := range lists {
			if err != nil {
				yield(nil, err)
				return
			}
			if list == nil {
				continue
			}

			items := list.Items
			size := chunkSize
			if size <= 0 {
				size = len(items)
			}
			for index, start := 1, 0; start < len(items); index, start = index+1, start+size {
				end := min(start+size, len(items))
				l.Debug("yield batch", zap.Int("batch", index), zap.Int("items", end-start))

				batch := &models.DataEntityList{
					DataSourceOddrn: oddrn,
					Items:           items[start:end:end],
				}
				if !yield(batch, nil) {
					return
				}
			}
		}
	}
}

// Batches collects Split into a slice.
func Batches(lists iter.Seq2[*models.DataEntityList, error], oddrn string, chunkSize int, l *zap.Logger) ([]*models.DataEntityList, error) {
	var out []*models.DataEntityList
	for batch, err := range Split(lists, oddrn, chunkSize, l) {
		if err != nil {
			return out, err
		}
		out = append(out, batch)
	}
	return out, nil
}
