package main

import (
	"os"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progressBar shows extraction progress on stderr, next to the logs and
// away from the dump on stdout.
type progressBar struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func newProgressBar(name string, total int64) *progressBar {
	p := mpb.New(
		mpb.WithOutput(os.Stderr),
		mpb.WithAutoRefresh(),
	)

	bar := p.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name, decor.WCSyncSpaceR),
			decor.CountersKibiByte("% .2f / % .2f", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.AverageETA(decor.ET_STYLE_GO),
			decor.Name(" "),
			decor.AverageSpeed(decor.SizeB1024(0), "% .2f", decor.WCSyncWidth),
			decor.Name(" "),
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "done"),
		),
	)

	return &progressBar{p: p, bar: bar}
}

func (b *progressBar) add(n int) {
	b.bar.IncrBy(n)
}

// finish completes the bar at its current value, or aborts it, and waits
// for the final render.
func (b *progressBar) finish(ok bool) {
	if ok {
		b.bar.SetTotal(-1, true)
	} else {
		b.bar.Abort(false)
	}
	b.p.Wait()
}
