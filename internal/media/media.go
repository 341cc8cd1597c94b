// Package media defines the playable-resource capability the audio buses
// consume. Decoding and transport live behind these interfaces.
package media

// LoadOptions configures a newly constructed sound.
type LoadOptions struct {
	Loop bool
}

// Handlers receives resource events. Implementations must never invoke a
// handler synchronously from inside a Sound method call; events arrive from
// the resource's own goroutine. Nil fields are ignored.
type Handlers struct {
	OnLoad  func()
	OnEnd   func()
	OnError func(err error)
}

// Sound is one loaded (or loading) playable resource.
type Sound interface {
	URL() string
	Loaded() bool

	Play()
	Pause()
	Stop()
	Seek(seconds float64)
	SetVolume(g float64)
	SetLoop(loop bool)

	Position() float64
	Duration() float64
	Playing() bool

	// SetHandlers replaces every previously attached handler.
	SetHandlers(h Handlers)
	Close() error
}

// Loader constructs sounds from resource locators.
type Loader interface {
	Load(url string, opts LoadOptions) (Sound, error)
}
