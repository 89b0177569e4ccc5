package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/confessions/internal/client/client"
	"github.com/dmitrijs2005/confessions/internal/common"
)

func describeError(err error) string {
	if retry, ok := common.RetryAfter(err); ok {
		return fmt.Sprintf("you have already posted in the last 24 hours, try again in %s", humanDuration(retry))
	}
	switch {
	case errors.Is(err, common.ErrEmptyContent):
		return "confession is empty"
	case errors.Is(err, common.ErrTooLong):
		return fmt.Sprintf("confession is longer than %d characters", common.MaxContentLength)
	case errors.Is(err, common.ErrorNotFound):
		return "confession not found"
	case errors.Is(err, client.ErrUnavailable):
		return "server is unavailable, try again later"
	case errors.Is(err, client.ErrUnauthorized):
		return "identity was rejected, run 'identify --force'"
	}
	return err.Error()
}

// humanDuration renders d rounded to minutes, e.g. "3h12m".
func humanDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "less than a minute"
	}
	h, m := d/time.Hour, (d%time.Hour)/time.Minute
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%dm", h, m)
	}
}
