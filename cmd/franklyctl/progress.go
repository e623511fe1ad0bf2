package main

import (
	"github.com/franc0r/frankly-fw-update/device"
	"github.com/schollz/progressbar/v3"
)

// progressBar adapts a device.ProgressFunc onto a terminal progress bar.
// The bar is (re)sized the first time it sees a Total, since erase/flash
// don't know the page count until Init has run.
type progressBar struct {
	desc string
	bar  *progressbar.ProgressBar
}

func newProgressBar(desc string) *progressBar {
	return &progressBar{desc: desc}
}

func (p *progressBar) onProgress(ev device.Progress) {
	switch e := ev.(type) {
	case device.ProgressMessage:
		log.Info().Msg(e.Text)
	case device.ProgressErase:
		p.step(e.Current, e.Total)
	case device.ProgressFlash:
		p.step(e.Current, e.Total)
	}
}

func (p *progressBar) step(current, total int) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total, progressbar.OptionSetDescription(p.desc))
	}
	p.bar.Set(current)
}

func (p *progressBar) finish() error {
	if p.bar == nil {
		return nil
	}
	return p.bar.Finish()
}
