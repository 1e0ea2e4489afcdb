package handlers

import (
	"net/http"
	"time"

	"github.com/rschio/bank/internal/web"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// middlewareWeb starts the request span and stores the values every layer
// below reads from the context. Now is the single clock reading the whole
// request works with.
func middlewareWeb(tracer trace.Tracer, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "web",
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.Pattern),
			),
		)
		defer span.End()

		v := web.Values{
			TraceID: span.SpanContext().TraceID().String(),
			Tracer:  tracer,
			Now:     time.Now(),
		}
		ctx = web.SetValues(ctx, &v)
		r = r.WithContext(ctx)

		h(w, r)
	})
}
