package errors

import (
	stderrors "errors"

	"github.com/vango-dev/resize/pkg/channel"
	"github.com/vango-dev/resize/pkg/page"
	"github.com/vango-dev/resize/pkg/region"
)

// Classify maps an error from the resize packages to its registered code.
// Errors it does not recognize are wrapped under fallback.
func Classify(err error, fallback string) *ResizeError {
	if err == nil {
		return nil
	}
	var re *ResizeError
	if stderrors.As(err, &re) {
		return re
	}

	var serverErr *channel.ServerError
	var statusErr *page.StatusError
	switch {
	case stderrors.As(err, &serverErr):
		e := New("E062")
		e.Message = "Server reported an error: " + serverErr.Message
		return e
	case stderrors.Is(err, channel.ErrDecode):
		return New("E061").Wrap(err)
	case stderrors.Is(err, channel.ErrAmbiguousClosure):
		return New("E063")
	case stderrors.Is(err, channel.ErrFirstFrameTimeout):
		return New("E064").Wrap(err)
	case stderrors.Is(err, channel.ErrChannel):
		return New("E060").Wrap(err)
	case stderrors.Is(err, channel.ErrFormBusy), stderrors.Is(err, region.ErrBusy):
		return New("E065")
	case stderrors.Is(err, channel.ErrAbandoned):
		return New("E066")
	case stderrors.Is(err, channel.ErrInvalidAction):
		return New("E067").Wrap(err)
	case stderrors.Is(err, page.ErrNotFound):
		return New("E080")
	case stderrors.As(err, &statusErr):
		return New("E081").Wrap(err)
	}
	return New(fallback).Wrap(err)
}
