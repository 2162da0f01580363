package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// ErrorAlert renders an inline error box for HTMX swaps and the dashboard.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPrinter(w)
		p.raw(`<div class="alert alert-error" role="alert"><strong>`)
		p.text(message)
		p.raw(`</strong>`)
		if action != "" {
			p.raw(`<p>`)
			p.text(action)
			p.raw(`</p>`)
		}
		if code != "" {
			p.raw(`<small>Code: `)
			p.text(code)
			p.raw(`</small>`)
		}
		p.raw(`</div>`)
		return p.err
	})
}

// printer accumulates the first write error so components read top to bottom.
type printer struct {
	w   io.Writer
	err error
}

func newPrinter(w io.Writer) *printer { return &printer{w: w} }

func (p *printer) raw(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *printer) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *printer) component(ctx context.Context, c templ.Component) {
	if p.err == nil {
		p.err = c.Render(ctx, p.w)
	}
}
