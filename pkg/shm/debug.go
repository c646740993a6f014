package shm

import (
	"fmt"
	"sort"

	"github.com/valyala/bytebufferpool"
)

// DumpPoolStats renders the free-chunk counts per class, one line per
// class, for debug logs and dev tooling.
func DumpPoolStats(p *Pool) string {
	stats := p.Stats()
	sizes := make([]int, 0, len(stats))
	for size := range stats {
		sizes = append(sizes, int(size))
	}
	sort.Ints(sizes)

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	for _, size := range sizes {
		_, _ = fmt.Fprintf(buf, "class size:%d free:%d\n", size, stats[uint32(size)])
	}
	return buf.String()
}
