package service

import (
	"context"
	"errors"
	"time"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
	"github.com/docbook/booking-system/internal/pkg/metrics"
)

// Options carries the knobs shared by every service talking to the directory.
type Options struct {
	Retry RetryPolicy
	// CallTimeout bounds each directory call. Zero means no timeout.
	CallTimeout time.Duration
	Now         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Retry == (RetryPolicy{}) {
		o.Retry = DefaultRetryPolicy()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// remote wraps directory calls with the call timeout, the retry policy and
// latency metrics. AddDocument is never retried: a retried insert could
// create the same appointment twice.
type remote struct {
	dir     ports.RemoteDirectory
	retry   RetryPolicy
	timeout time.Duration
}

func newRemote(dir ports.RemoteDirectory, opts Options) remote {
	return remote{dir: dir, retry: opts.Retry, timeout: opts.CallTimeout}
}

func (r remote) call(ctx context.Context, op string, retry bool, fn func(ctx context.Context) error) error {
	attempt := func() error {
		callCtx, cancel := r.bound(ctx)
		defer cancel()

		start := time.Now()
		err := fn(callCtx)
		metrics.ObserveDirectoryCall(op, err, time.Since(start))
		return err
	}
	if !retry {
		return attempt()
	}
	return r.retry.Do(ctx, attempt)
}

func (r remote) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r remote) get(ctx context.Context, collection, id string) (*ports.Document, error) {
	var doc *ports.Document
	err := r.call(ctx, "get", true, func(ctx context.Context) error {
		var err error
		doc, err = r.dir.GetDocument(ctx, collection, id)
		return err
	})
	return doc, err
}

func (r remote) query(ctx context.Context, collection string, filters ...ports.Filter) ([]ports.Document, error) {
	var docs []ports.Document
	err := r.call(ctx, "query", true, func(ctx context.Context) error {
		var err error
		docs, err = r.dir.Query(ctx, collection, filters...)
		return err
	})
	return docs, err
}

func (r remote) set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	return r.call(ctx, "set", true, func(ctx context.Context) error {
		return r.dir.SetDocument(ctx, collection, id, fields, ports.SetOptions{Merge: merge})
	})
}

func (r remote) add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	var id string
	err := r.call(ctx, "add", false, func(ctx context.Context) error {
		var err error
		id, err = r.dir.AddDocument(ctx, collection, fields)
		return err
	})
	return id, err
}

// classifyRemote maps a directory failure onto the error taxonomy.
func classifyRemote(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, ports.ErrDocumentNotFound) {
		return domain.NewError(domain.KindNotFound, op+": not found", err)
	}
	return domain.Unavailable(op, err)
}
