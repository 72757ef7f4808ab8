package middleware

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RealIPMiddleware", func() {
	var (
		remoteAddr string
		handler    http.Handler
	)

	BeforeEach(func() {
		handler = RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remoteAddr = r.RemoteAddr
		}))
	})

	serve := func(req *http.Request) {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	It("Should take X-Real-IP from a trusted proxy", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.1:9999"
		req.Header.Set("X-Real-IP", "203.0.113.7")

		serve(req)

		Expect(remoteAddr).To(Equal("203.0.113.7:0"))
	})

	It("Should ignore forwarding headers from public addresses", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.4:9999"
		req.Header.Set("X-Forwarded-For", "203.0.113.7")

		serve(req)

		Expect(remoteAddr).To(Equal("198.51.100.4:9999"))
	})

	It("Should walk X-Forwarded-For from the right", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:9999"
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.1.1.1, 10.1.1.2")

		serve(req)

		Expect(remoteAddr).To(Equal("203.0.113.7:0"))
	})

	It("Should not trust entries beyond the forward limit", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:9999"

		// The leftmost entry is the one a client can forge; with six hops,
		// only the rightmost five are trusted.
		req.Header.Set("X-Forwarded-For", "6.6.6.6, 5.5.5.5, 4.4.4.4, 3.3.3.3, 2.2.2.2, 1.1.1.1")

		serve(req)

		Expect(remoteAddr).To(Equal("5.5.5.5:0"))
	})
})
