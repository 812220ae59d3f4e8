package monitor_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sinuca-go/engine"
	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/monitor"
)

func TestMonitor(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Monitor Suite")
}

var _ = Describe("Server", func() {
	It("answers /status with the engine's current snapshot", func() {
		eng := engine.New("engine")
		srv := monitor.New(":0", eng)

		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("built"))
	})

	It("answers /stats with 503 before the run ends, and 200 after", func() {
		eng := engine.New("engine")
		srv := monitor.New(":0", eng)

		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

		srv.SetFinalStatistics([]link.Stat{{Name: "engine.cycles", Value: "10"}})

		rec = httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("engine.cycles"))
	})
})
