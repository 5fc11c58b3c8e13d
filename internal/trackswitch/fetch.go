// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package trackswitch

import (
	"context"
	"fmt"

	"github.com/ManuGH/segplay/internal/log"
	"github.com/ManuGH/segplay/internal/media"
	"github.com/ManuGH/segplay/internal/playback"
	"github.com/ManuGH/segplay/internal/tracks"
)

// attachFetched downloads a plain-text subtitle, attaches it to host and
// shows it once parsed. Until then the previous subtitle keeps showing; any
// failure leaves it untouched.
func (p *Protocol) attachFetched(ctx context.Context, gen uint64, surfaceID string, host playback.TextTrackHost, track tracks.Subtitle) (Result, error) {
	if p.fetcher == nil {
		return Result{}, p.fail(CodeAPIUnsupported, TrackSubtitle, track.ServerIndex, ErrAPIUnsupported)
	}

	ctx, cancel := p.bind(ctx)
	defer cancel()

	item := p.session.Item()
	ref := media.SubtitleRef{
		ItemID:      item.ID,
		StreamIndex: track.ServerIndex,
		Format:      media.DeliveryFormat(track.Format),
		DeliveryURL: track.DeliveryURL,
	}
	if src, ok := item.PrimarySource(); ok {
		ref.MediaSourceID = src.ID
	}

	fetchCtx, fetchCancel := context.WithTimeout(ctx, p.fetchTimeout)
	content, err := p.fetcher.FetchSubtitle(fetchCtx, ref)
	fetchCancel()
	if p.stale(ctx) || !p.currentGen(gen) {
		return Result{Kind: KindCanceled, TrackType: TrackSubtitle}, nil
	}
	if err != nil {
		return Result{}, p.fail(CodeNetwork, TrackSubtitle, track.ServerIndex, err)
	}

	attached, err := host.AttachTextTrack(content, track.Language, track.DisplayTitle)
	if err != nil {
		return Result{}, p.fail(CodeAPIUnsupported, TrackSubtitle, track.ServerIndex, err)
	}

	select {
	case <-attached.Parsed():
	case <-p.clock.After(p.parseTimeout):
		attached.Remove()
		return Result{}, p.fail(CodeUnknown, TrackSubtitle, track.ServerIndex,
			fmt.Errorf("%w after %s", ErrParseTimeout, p.parseTimeout))
	case <-ctx.Done():
		attached.Remove()
		return Result{Kind: KindCanceled, TrackType: TrackSubtitle}, nil
	}
	if !p.currentGen(gen) {
		attached.Remove()
		return Result{Kind: KindCanceled, TrackType: TrackSubtitle}, nil
	}

	host.HideAllTextTracks()
	attached.Show()

	p.mu.Lock()
	prev := p.fetched
	p.fetched = &fetchedTrack{surfaceID: surfaceID, serverIndex: track.ServerIndex, track: attached}
	p.mu.Unlock()
	if prev != nil {
		prev.track.Remove()
	}

	p.logger.Info().
		Int(log.FieldServerIndex, track.ServerIndex).
		Str(log.FieldFormat, ref.Format).
		Str(log.FieldSurfaceID, surfaceID).
		Int("bytes", len(content)).
		Msg("fetched subtitle attached")
	return p.result(KindSwitched, TrackSubtitle, track.ServerIndex), nil
}

// bind ties ctx to the session's lifetime.
func (p *Protocol) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(p.session.Context(), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
