package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// pools maps Options to a *sync.Pool of renderers built with those options.
// A glamour.TermRenderer must not be shared between goroutines, so every
// Render borrows one and hands it back.
var pools sync.Map

func poolFor(opts Options) *sync.Pool {
	if p, ok := pools.Load(opts); ok {
		return p.(*sync.Pool)
	}
	p, _ := pools.LoadOrStore(opts, &sync.Pool{
		New: func() any {
			r, err := newRenderer(opts)
			if err != nil {
				return nil
			}
			return r
		},
	})
	return p.(*sync.Pool)
}

func borrow(opts Options) (*glamour.TermRenderer, error) {
	if r, ok := poolFor(opts).Get().(*glamour.TermRenderer); ok && r != nil {
		return r, nil
	}
	// the pool swallows construction errors; build again to report one
	return newRenderer(opts)
}

func giveBack(opts Options, r *glamour.TermRenderer) {
	if r != nil {
		poolFor(opts).Put(r)
	}
}

func newRenderer(opts Options) (*glamour.TermRenderer, error) {
	ro := []glamour.TermRendererOption{
		glamour.WithStylePath(opts.Style),
		glamour.WithWordWrap(opts.Width),
		glamour.WithTableWrap(opts.TableWrap),
		glamour.WithInlineTableLinks(opts.InlineTableLinks),
	}
	if opts.EnableEmoji {
		ro = append(ro, glamour.WithEmoji())
	}
	if opts.PreserveNewLines {
		ro = append(ro, glamour.WithPreservedNewLines())
	}
	return glamour.NewTermRenderer(ro...)
}

// ClearCache drops every renderer pool. Tests use it to start from zero.
func ClearCache() {
	pools.Range(func(k, _ any) bool {
		pools.Delete(k)
		return true
	})
}

// CacheSize reports how many distinct option sets have a pool.
func CacheSize() int {
	n := 0
	pools.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
