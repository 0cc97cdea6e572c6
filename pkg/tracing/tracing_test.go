package tracing

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestProvider(t *testing.T) {
	Convey("Given a disabled tracing config", t, func() {
		p, err := New(context.Background(), Config{})

		Convey("Then a no-op provider is returned", func() {
			So(err, ShouldBeNil)
			So(p.Tracer(), ShouldNotBeNil)
			So(p.Shutdown(context.Background()), ShouldBeNil)
		})

		Convey("And Start yields a usable span", func() {
			ctx, span := Start(context.Background(), "snapshot.save", attribute.String("name", "prod"))
			So(ctx, ShouldNotBeNil)
			span.End()
		})
	})

	Convey("Given sample ratios", t, func() {
		So(sampler(1).Description(), ShouldEqual, sdktrace.AlwaysSample().Description())
		So(sampler(0).Description(), ShouldEqual, sdktrace.NeverSample().Description())
		So(sampler(0.5).Description(), ShouldContainSubstring, "TraceIDRatioBased")
	})
}
