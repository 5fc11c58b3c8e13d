// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package subrender

import "github.com/ManuGH/segplay/internal/log"

// RequestResize schedules a debounced resize. Bursts within the debounce
// window collapse into one resize of the surface bound when the timer fires.
// A resize that comes due while the surface has no layout stays pending and
// fires once the layout becomes nonzero.
func (l *Lifecycle) RequestResize() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.renderer == nil || l.binding.Surface == nil {
		return
	}
	if l.resize != nil {
		l.resize.Stop()
	}
	surfaceID := l.binding.Surface.ID()
	renderer := l.renderer
	l.resize = l.opts.Clock.AfterFunc(l.opts.ResizeDebounce, func() {
		l.fireResize(renderer, surfaceID, false)
	})
}

// fireResize resizes renderer only if it is still the live renderer, the
// surface it was scheduled for is still bound, and that surface has a
// nonzero layout. Without a layout it re-checks every dimension poll until
// the renderer is replaced or torn down.
func (l *Lifecycle) fireResize(renderer Renderer, surfaceID string, waiting bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resize = nil
	if l.renderer != renderer || l.state != StateActive {
		return
	}
	s := l.binding.Surface
	if s == nil || s.ID() != surfaceID {
		return
	}
	w, h := s.LayoutSize()
	if w <= 0 || h <= 0 {
		if !waiting {
			l.logger.Debug().Str(log.FieldSurfaceID, surfaceID).Msg("resize deferred, surface has no layout")
		}
		l.resize = l.opts.Clock.AfterFunc(l.opts.DimensionPoll, func() {
			l.fireResize(renderer, surfaceID, true)
		})
		return
	}
	if err := renderer.Resize(w, h); err != nil {
		l.logger.Warn().Err(err).Msg("subtitle resize failed")
	}
}
