package engine

import (
	"runtime"
	"sync"
)

// parallelDictMin is the row count below which BuildDictionary stays on
// one goroutine.
const parallelDictMin = 1 << 14

// BuildDictionary dictionary-encodes string values. dict holds the distinct
// strings in first-seen order and ids[i] indexes dict, or is -1 where
// values[i] is null. Non-string values are treated as null.
func BuildDictionary(values []Value) (dict []string, ids []int32) {
	ids = make([]int32, len(values))
	numWorkers := runtime.NumCPU()
	if len(values) < parallelDictMin || numWorkers < 2 {
		d := newLocalDict()
		d.encode(values, ids)
		return d.list, ids
	}

	// Each worker encodes one contiguous chunk against its own dictionary,
	// then the local ids are remapped onto the merged global dictionary.
	chunkSize := (len(values) + numWorkers - 1) / numWorkers
	workerDicts := make([]*localDict, numWorkers)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, len(values))
		if start >= end {
			workerDicts[w] = newLocalDict()
			continue
		}
		wg.Add(1)
		go func(idx, start, end int) {
			defer wg.Done()
			d := newLocalDict()
			d.encode(values[start:end], ids[start:end])
			workerDicts[idx] = d
		}(w, start, end)
	}
	wg.Wait()

	global := newLocalDict()
	for w, d := range workerDicts {
		remap := make([]int32, len(d.list))
		for lid, s := range d.list {
			remap[lid] = global.id(s)
		}
		start := w * chunkSize
		end := min(start+chunkSize, len(values))
		for k := start; k < end; k++ {
			if ids[k] >= 0 {
				ids[k] = remap[ids[k]]
			}
		}
	}
	return global.list, ids
}

type localDict struct {
	m    map[string]int32
	list []string
}

func newLocalDict() *localDict {
	return &localDict{m: make(map[string]int32)}
}

func (d *localDict) id(s string) int32 {
	if id, ok := d.m[s]; ok {
		return id
	}
	id := int32(len(d.list))
	d.list = append(d.list, s)
	d.m[s] = id
	return id
}

func (d *localDict) encode(values []Value, ids []int32) {
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			ids[i] = -1
			continue
		}
		ids[i] = d.id(s)
	}
}
