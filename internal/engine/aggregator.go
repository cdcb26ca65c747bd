package engine

import (
	"dfserde/internal/models"
	"runtime"
	"sync"
)

// Describe computes per-column statistics. Columns are spread over a fixed
// pool of workers and every worker writes only its own result slots, so the
// output keeps column order without locking.
func (df *DataFrame) Describe() *models.FrameStats {
	n := len(df.columns)
	stats := make([]models.ColumnStat, n)

	numWorkers := min(runtime.NumCPU(), n)
	if numWorkers == 0 {
		return &models.FrameStats{Rows: 0, Columns: stats}
	}
	chunkSize := (n + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for j := s; j < e; j++ {
				stats[j] = describeSeries(df.columns[j])
			}
		}(start, end)
	}
	wg.Wait()

	return &models.FrameStats{Rows: df.Height(), Columns: stats}
}

func describeSeries(s *Series) models.ColumnStat {
	st := models.ColumnStat{
		Name:      s.name,
		DataType:  s.dtype.String(),
		Length:    s.Len(),
		NullCount: s.NullCount(),
		Flags:     s.flags.String(),
	}
	switch s.dtype.ID() {
	case STRING, CATEGORICAL:
		dict, _ := BuildDictionary(s.values)
		st.Distinct = len(dict)
	case ENUM:
		seen := make(map[uint32]struct{})
		for _, v := range s.values {
			if idx, ok := v.(uint32); ok {
				seen[idx] = struct{}{}
			}
		}
		st.Distinct = len(seen)
	}
	return st
}
