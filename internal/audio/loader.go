package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/satindergrewal/soundstage/internal/media"
)

// Loader builds voices for the renderer. Resolution and decoding run in the
// background; the voice reports OnLoad or OnError when they finish.
type Loader struct {
	ctx      context.Context
	renderer *Renderer
	resolve  Resolver
	decode   Decoder
	slots    chan struct{}
	logger   *slog.Logger
}

// LoaderOptions configures NewLoader.
type LoaderOptions struct {
	Resolve    Resolver // required
	Decode     Decoder  // defaults to DecodeFile
	MaxDecodes int      // concurrent decodes, default 2
	Logger     *slog.Logger
}

// NewLoader returns a loader whose background work stops with ctx.
func NewLoader(ctx context.Context, r *Renderer, opts LoaderOptions) *Loader {
	if opts.Decode == nil {
		opts.Decode = DecodeFile
	}
	if opts.MaxDecodes <= 0 {
		opts.MaxDecodes = 2
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		ctx:      ctx,
		renderer: r,
		resolve:  opts.Resolve,
		decode:   opts.Decode,
		slots:    make(chan struct{}, opts.MaxDecodes),
		logger:   opts.Logger.With("component", "loader"),
	}
}

// Load implements media.Loader.
func (l *Loader) Load(url string, opts media.LoadOptions) (media.Sound, error) {
	if l.resolve == nil {
		return nil, fmt.Errorf("load %s: no resolver", url)
	}
	if err := l.ctx.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", url, err)
	}
	v := newVoice(url, opts.Loop, l.renderer.remove)
	l.renderer.add(v)
	go l.prepare(v)
	return v, nil
}

func (l *Loader) prepare(v *Voice) {
	select {
	case l.slots <- struct{}{}:
		defer func() { <-l.slots }()
	case <-l.ctx.Done():
		v.fail(l.ctx.Err())
		return
	}

	path, err := l.resolve(l.ctx, v.url)
	if err != nil {
		l.logger.Warn("resolve failed", "url", v.url, "error", err)
		v.fail(fmt.Errorf("resolve %s: %w", v.url, err))
		return
	}
	samples, err := l.decode(l.ctx, path)
	if err != nil {
		l.logger.Warn("decode failed", "url", v.url, "path", path, "error", err)
		v.fail(err)
		return
	}
	l.logger.Debug("decoded", "url", v.url, "seconds", samplesToSeconds(len(samples)))
	v.finish(samples)
}

var _ media.Loader = (*Loader)(nil)
