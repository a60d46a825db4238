// Package progress renders transfer byte counters as live terminal bars.
package progress

import (
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

type Progress struct {
	progress *mpb.Progress

	mu   sync.Mutex
	bars map[string]*mpb.Bar
}

func New() *Progress {
	return &Progress{
		progress: mpb.New(),
		bars:     make(map[string]*mpb.Bar),
	}
}

// Track returns the bar for a transfer id, creating it on first use.
func (p *Progress) Track(id, text string, total int64) *mpb.Bar {
	p.mu.Lock()
	defer p.mu.Unlock()

	if bar, ok := p.bars[id]; ok {
		return bar
	}

	bar := p.progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(text, decor.WC{W: 12, C: decor.DindentRight}),
			decor.CountersKibiByte(" % .2f / % .2f", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Elapsed(1, decor.WC{W: 12, C: decor.DindentRight}),
		),
	)

	p.bars[id] = bar
	return bar
}

// Set moves a tracked bar to an absolute byte count.
func (p *Progress) Set(id string, current int64) {
	p.mu.Lock()
	bar, ok := p.bars[id]
	p.mu.Unlock()

	if ok {
		bar.SetCurrent(current)
	}
}

// Finish completes a tracked bar regardless of its current count.
func (p *Progress) Finish(id string) {
	p.mu.Lock()
	bar, ok := p.bars[id]
	delete(p.bars, id)
	p.mu.Unlock()

	if ok {
		bar.SetTotal(-1, true)
	}
}

func (p *Progress) Wait() {
	p.progress.Wait()
}
