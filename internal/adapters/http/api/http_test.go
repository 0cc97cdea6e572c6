package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/soe/internal/adapters/http/api"
	service "github.com/okian/soe/internal/app"
	"github.com/okian/soe/internal/domain/insight"
	"github.com/okian/soe/pkg/logger"
)

const reference = `{"metrics":{"uptime":99.99,"errorRate":0.01,"cpuUtilization":45,"memoryUtilization":60,"throughput":1200,"responseTime":120}}`

const analysisReply = `{"summary":"Healthy","strengths":["uptime"],"weaknesses":[],` +
	`"recommendations":[{"title":"Cache","description":"Add caching","impact":"low"}]}`

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

type fixture struct {
	svc    *service.Service
	mux    *http.ServeMux
	cancel context.CancelFunc
}

func newFixture(gen insight.Generator, opts ...api.Option) *fixture {
	svcOpts := []service.Option{service.WithWorkerCount(1)}
	if gen != nil {
		svcOpts = append(svcOpts, service.WithGenerator(gen))
	}
	svc := service.New(svcOpts...)
	ctx, cancel := context.WithCancel(context.Background())
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, opts...).Register(ctx, mux)
	return &fixture{svc: svc, mux: mux, cancel: cancel}
}

func (f *fixture) close() {
	f.cancel()
	f.svc.Stop()
}

func (f *fixture) do(method, target string, body io.Reader, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func jsonHeader() map[string]string {
	return map[string]string{"Content-Type": "application/json"}
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Operational(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		f := newFixture(nil)
		defer f.close()

		Convey("Then /healthz reports ok as JSON", func() {
			w := f.do("GET", "/healthz", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["status"], ShouldEqual, "ok")
		})

		Convey("Then /healthz serves metrics to Prometheus scrapers", func() {
			w := f.do("GET", "/healthz", nil, map[string]string{"Accept": "text/plain"})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "soe_")
		})

		Convey("Then /metrics is served", func() {
			So(f.do("GET", "/metrics", nil, nil).Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then /stats returns service statistics", func() {
			w := f.do("GET", "/stats", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			stats := decode(w)
			So(stats["workerCount"], ShouldEqual, 1.0)
			So(stats["aiConfigured"], ShouldEqual, false)
		})

		Convey("Then /dashboard serves the embedded page", func() {
			w := f.do("GET", "/dashboard", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(w.Body.String(), ShouldContainSubstring, "SOE Analyzer")
		})

		Convey("Then a wrong method is rejected", func() {
			So(f.do("DELETE", "/api/score", nil, nil).Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_Score(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		f := newFixture(nil)
		defer f.close()

		Convey("When the reference metrics are scored", func() {
			w := f.do("POST", "/api/score", strings.NewReader(reference), jsonHeader())

			Convey("Then the reference result is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["overallScore"], ShouldEqual, 97.0)
				So(body["trend"], ShouldEqual, "stable")
				So(body["categoryScores"].(map[string]any)["performance"], ShouldEqual, 86.0)
				So(body, ShouldNotContainKey, "breakdown")
			})
		})

		Convey("When the breakdown is requested", func() {
			w := f.do("POST", "/api/score?detail=true", strings.NewReader(reference), jsonHeader())

			Convey("Then the unrounded values are included", func() {
				b := decode(w)["breakdown"].(map[string]any)
				So(b["latencyScore"], ShouldEqual, 65.0)
				So(b["resourceAverage"], ShouldEqual, 52.5)
			})
		})

		Convey("When explicit weights are sent", func() {
			body := `{"metrics":{"uptime":97.5},"weights":{"uptime":1}}`
			w := f.do("POST", "/api/score", strings.NewReader(body), jsonHeader())

			Convey("Then they override the current weights", func() {
				So(decode(w)["overallScore"], ShouldEqual, 50.0)
			})
		})

		Convey("When the metrics are missing", func() {
			w := f.do("POST", "/api/score", strings.NewReader(`{}`), jsonHeader())

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When the metrics overflow a category score", func() {
			body := `{"metrics":{"uptime":99.9,"errorRate":-1e308,"cpuUtilization":45,"memoryUtilization":50,"throughput":800,"responseTime":150}}`
			w := f.do("POST", "/api/score", strings.NewReader(body), jsonHeader())

			Convey("Then a complete 422 error names the metric", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				out := decode(w)
				So(out["code"], ShouldEqual, "unrepresentable_score")
				So(out["message"], ShouldContainSubstring, "errorRate")
			})
		})

		Convey("When only the breakdown overflows", func() {
			body := `{"metrics":{"uptime":99.9,"errorRate":0.05,"cpuUtilization":1e308,"memoryUtilization":1e308,"throughput":800,"responseTime":150}}`

			Convey("Then the plain score still succeeds", func() {
				So(f.do("POST", "/api/score", strings.NewReader(body), jsonHeader()).Code, ShouldEqual, http.StatusOK)
			})

			Convey("Then the detailed score is rejected naming the utilisation metrics", func() {
				w := f.do("POST", "/api/score?detail=true", strings.NewReader(body), jsonHeader())
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decode(w)["message"], ShouldContainSubstring, "cpuUtilization, memoryUtilization")
			})
		})

		Convey("When the body is not JSON", func() {
			w := f.do("POST", "/api/score", strings.NewReader(`uptime=99`), jsonHeader())
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_Snapshots(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		f := newFixture(nil)
		defer f.close()

		Convey("When the history is listed", func() {
			w := f.do("GET", "/api/snapshots", nil, nil)

			Convey("Then the fallback history is returned with an ETag", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var history []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &history), ShouldBeNil)
				So(history, ShouldHaveLength, 2)
				So(w.Header().Get("ETag"), ShouldStartWith, `"`)
			})

			Convey("Then a matching If-None-Match gets 304", func() {
				tag := w.Header().Get("ETag")
				again := f.do("GET", "/api/snapshots", nil, map[string]string{"If-None-Match": tag})
				So(again.Code, ShouldEqual, http.StatusNotModified)
				So(again.Body.Len(), ShouldEqual, 0)
			})

			Convey("Then saving a snapshot changes the ETag", func() {
				tag := w.Header().Get("ETag")
				So(f.do("POST", "/api/snapshots", strings.NewReader(reference), jsonHeader()).Code, ShouldEqual, http.StatusCreated)
				again := f.do("GET", "/api/snapshots", nil, map[string]string{"If-None-Match": tag})
				So(again.Code, ShouldEqual, http.StatusOK)
				So(again.Header().Get("ETag"), ShouldNotEqual, tag)
			})
		})

		Convey("When a snapshot is posted as JSON", func() {
			body := `{"name":"checkout",` + strings.TrimPrefix(reference, "{")
			w := f.do("POST", "/api/snapshots", strings.NewReader(body), jsonHeader())

			Convey("Then it is created and can be fetched", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				snap := decode(w)
				So(snap["name"], ShouldEqual, "checkout")
				So(snap["score"].(map[string]any)["overallScore"], ShouldEqual, 97.0)
				So(w.Header().Get("Location"), ShouldEqual, "/api/snapshots/"+snap["id"].(string))

				got := f.do("GET", w.Header().Get("Location"), nil, nil)
				So(got.Code, ShouldEqual, http.StatusOK)
				So(decode(got)["id"], ShouldEqual, snap["id"])
			})
		})

		Convey("When a snapshot is posted from the entry form", func() {
			form := url.Values{"name": {"legacy"}, "uptime": {"97.5"}}
			w := f.do("POST", "/api/snapshots", strings.NewReader(form.Encode()),
				map[string]string{"Content-Type": "application/x-www-form-urlencoded"})

			Convey("Then absent fields keep the form defaults", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				snap := decode(w)
				So(snap["name"], ShouldEqual, "legacy")
				m := snap["metrics"].(map[string]any)
				So(m["uptime"], ShouldEqual, 97.5)
				So(m["throughput"], ShouldEqual, 800.0)
			})
		})

		Convey("When a snapshot is posted as a multipart form", func() {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			So(mw.WriteField("name", "billing"), ShouldBeNil)
			So(mw.WriteField("uptime", "50"), ShouldBeNil)
			So(mw.WriteField("errorRate", "10"), ShouldBeNil)
			So(mw.Close(), ShouldBeNil)
			w := f.do("POST", "/api/snapshots", &body, map[string]string{"Content-Type": mw.FormDataContentType()})

			Convey("Then the submitted fields are stored", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				snap := decode(w)
				So(snap["name"], ShouldEqual, "billing")
				m := snap["metrics"].(map[string]any)
				So(m["uptime"], ShouldEqual, 50.0)
				So(m["errorRate"], ShouldEqual, 10.0)
				So(m["throughput"], ShouldEqual, 800.0)
			})
		})

		Convey("When a snapshot would store an overflowing score", func() {
			body := `{"name":"broken","metrics":{"uptime":99.9,"errorRate":-1e308,"cpuUtilization":45,"memoryUtilization":50,"throughput":800,"responseTime":150}}`
			w := f.do("POST", "/api/snapshots", strings.NewReader(body), jsonHeader())

			Convey("Then it is rejected and history is unchanged", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decode(w)["code"], ShouldEqual, "unrepresentable_score")
				history, err := f.svc.History(context.Background())
				So(err, ShouldBeNil)
				So(history, ShouldHaveLength, 2)
			})
		})

		Convey("When a form field is not numeric", func() {
			form := url.Values{"uptime": {"high"}}
			w := f.do("POST", "/api/snapshots", strings.NewReader(form.Encode()),
				map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an unknown snapshot is fetched", func() {
			w := f.do("GET", "/api/snapshots/missing", nil, nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})

		Convey("Then the overview describes the latest snapshot", func() {
			w := f.do("GET", "/api/overview", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			ov := decode(w)
			So(ov["historySize"], ShouldEqual, 2.0)
			So(ov["band"], ShouldEqual, "accent")
			So(ov["kpis"], ShouldHaveLength, 4)
		})
	})
}

func TestServer_Analysis(t *testing.T) {
	Convey("Given a server backed by a scripted AI", t, func() {
		gen := insight.GeneratorFunc(func(context.Context, insight.Request) (string, error) {
			return analysisReply, nil
		})
		f := newFixture(gen)
		defer f.close()

		Convey("When analysis of a snapshot is requested", func() {
			w := f.do("POST", "/api/snapshots/1/analysis", nil, nil)

			Convey("Then it is accepted and eventually ready", func() {
				So(w.Code, ShouldBeIn, []int{http.StatusAccepted, http.StatusOK})

				var rec map[string]any
				deadline := time.Now().Add(3 * time.Second)
				for time.Now().Before(deadline) {
					got := f.do("GET", "/api/snapshots/1/analysis", nil, nil)
					rec = decode(got)
					if rec["status"] == "ready" {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(rec["status"], ShouldEqual, "ready")
				a := rec["analysis"].(map[string]any)
				So(a["summary"], ShouldEqual, "Healthy")
				So(a["recommendations"].([]any)[0].(map[string]any)["impact"], ShouldEqual, "Low")
			})
		})

		Convey("When an analysis was never requested", func() {
			So(f.do("GET", "/api/snapshots/2/analysis", nil, nil).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When analysis of an unknown snapshot is requested", func() {
			So(f.do("POST", "/api/snapshots/missing/analysis", nil, nil).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_Ingest(t *testing.T) {
	Convey("Given a server without an AI credential", t, func() {
		f := newFixture(nil, api.WithAIRateLimit(60, 2))
		defer f.close()
		csv := "name,uptime,errorRate,cpuUtilization,memoryUtilization,throughput,responseTime\n" +
			"billing,99.99,0.01,45,60,1200,120\n"

		Convey("When a raw CSV document is previewed", func() {
			w := f.do("POST", "/api/ingest", strings.NewReader(csv), map[string]string{"Content-Type": "text/csv"})

			Convey("Then it is scored but not stored", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				res := decode(w)
				So(res["format"], ShouldEqual, "csv")
				So(res["draft"].(map[string]any)["name"], ShouldEqual, "billing")
				So(res["score"].(map[string]any)["overallScore"], ShouldEqual, 97.0)
				So(res, ShouldNotContainKey, "snapshot")
			})
		})

		Convey("When a file is uploaded and saved", func() {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			part, err := mw.CreateFormFile("file", "payments.json")
			So(err, ShouldBeNil)
			_, _ = part.Write([]byte(reference))
			So(mw.Close(), ShouldBeNil)

			w := f.do("POST", "/api/ingest?save=true", &buf, map[string]string{"Content-Type": mw.FormDataContentType()})

			Convey("Then the snapshot is stored under the file name", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				snap := decode(w)["snapshot"].(map[string]any)
				So(snap["name"], ShouldEqual, "payments")
				history, _ := f.svc.History(context.Background())
				So(history, ShouldHaveLength, 3)
			})
		})

		Convey("When the format is unknown", func() {
			w := f.do("POST", "/api/ingest", strings.NewReader("\x00"), map[string]string{"Content-Type": "application/octet-stream"})
			So(w.Code, ShouldEqual, http.StatusUnsupportedMediaType)
			So(decode(w)["code"], ShouldEqual, "unsupported_format")
		})

		Convey("When a URL estimate is requested", func() {
			w := f.do("POST", "/api/ingest/url", strings.NewReader(`{"url":"example.com"}`), jsonHeader())

			Convey("Then the missing credential is reported", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decode(w)["code"], ShouldEqual, "ai_not_configured")
			})
		})

		Convey("When the URL is invalid", func() {
			w := f.do("POST", "/api/ingest/url", strings.NewReader(`{"url":"ftp://nowhere"}`), jsonHeader())
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the URL is missing", func() {
			w := f.do("POST", "/api/ingest/url", strings.NewReader(`{}`), jsonHeader())
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When one client exceeds its AI budget", func() {
			for i := 0; i < 2; i++ {
				f.do("POST", "/api/ingest/url", strings.NewReader(`{}`), jsonHeader())
			}
			w := f.do("POST", "/api/ingest/url", strings.NewReader(`{}`), jsonHeader())

			Convey("Then it is throttled", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode(w)["code"], ShouldEqual, "rate_limited")
				So(w.Header().Get("Retry-After"), ShouldNotBeBlank)
			})
		})
	})
}

func TestServer_WeightsAndAlerts(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		f := newFixture(nil)
		defer f.close()

		Convey("Then the default weights are served", func() {
			w := f.do("GET", "/api/weights", nil, nil)
			body := decode(w)
			So(body["uptime"], ShouldEqual, 0.35)
			So(body["normalized"], ShouldEqual, true)
		})

		Convey("When unnormalised weights are set", func() {
			w := f.do("PUT", "/api/weights", strings.NewReader(`{"uptime":2,"errorRate":2,"resourceEfficiency":2,"throughput":2}`), jsonHeader())

			Convey("Then they are accepted and used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["sum"], ShouldEqual, 8.0)
				So(decode(f.do("POST", "/api/score", strings.NewReader(reference), jsonHeader()))["overallScore"], ShouldEqual, 771.0)
			})
		})

		Convey("Then no alerts are active", func() {
			w := f.do("GET", "/api/alerts", nil, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})
	})
}

func TestServer_LiveUpdates(t *testing.T) {
	Convey("Given a server with a live update handler", t, func() {
		live := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
		f := newFixture(nil, api.WithLiveUpdates(live))
		defer f.close()

		Convey("Then it is mounted at /ws", func() {
			So(f.do("GET", "/ws", nil, nil).Code, ShouldEqual, http.StatusTeapot)
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("boom")

		Convey("Then kinds and causes are both matchable", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		})

		Convey("Then NewKind and Wrap render their parts", func() {
			So(api.NewKind("api.op", api.ErrNotFound).Error(), ShouldEqual, "api.op: not found")
			So(api.Wrap("api.op", cause).Error(), ShouldEqual, "api.op: boom")
			So(api.Wrap("api.op", nil), ShouldBeNil)
		})
	})
}
