package render

import (
	"context"

	foundationerrors "git.home.luguber.info/inful/pagefactory/internal/foundation/errors"
)

// Invoker calls an engine for one page at a time. It holds no per-call state.
type Invoker struct {
	engine  Engine
	global  Options
	members MembersFunc
}

// NewInvoker creates an invoker. global is never mutated; members may be nil.
func NewInvoker(engine Engine, global Options, members MembersFunc) *Invoker {
	if members == nil {
		members = DefaultMembers
	}
	return &Invoker{engine: engine, global: global, members: members}
}

// Engine returns the wrapped engine.
func (i *Invoker) Engine() Engine { return i.engine }

// Options returns the options a page would be rendered with.
func (i *Invoker) Options(page PageInfo) Options {
	return Merge(i.global, i.members(page))
}

// Invoke renders source for page. Engine failures are returned as
// CategoryRender errors naming the engine.
func (i *Invoker) Invoke(ctx context.Context, page PageInfo, source string) ([]byte, error) {
	out, err := i.engine.Render(ctx, source, i.Options(page))
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryRender, "render failed").
			WithContext("engine", i.engine.Name()).
			WithContext("template", page.Template).
			WithContext("page", page.Key).
			Build()
	}
	return out, nil
}
