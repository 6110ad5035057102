package server_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"roomwatch.dev/roomwatch/internal/server"
)

var _ = Describe("Gateway", func() {
	var (
		logger    *slog.Logger
		store     *server.Store
		mode      *server.ModeState
		publisher *fakeMQClient
		handler   http.Handler
	)

	BeforeEach(func() {
		logger = newTestLogger()
		store = newTestStore(logger)
		mode = server.NewModeState()
		publisher = &fakeMQClient{}

		gateway, err := server.NewGateway(&server.GatewayConfig{
			Logger:  logger,
			Store:   store,
			Mode:    mode,
			Alerter: server.NewAlerter(logger, publisher),
		})
		Expect(err).NotTo(HaveOccurred())

		handler = gateway.Routes()
	})

	do := func(method, target, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, target, nil)
		} else {
			req = httptest.NewRequest(method, target, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, out any) {
		Expect(json.Unmarshal(rec.Body.Bytes(), out)).To(Succeed())
	}

	Describe("NewGateway", func() {
		It("should return error when config is nil", func() {
			gateway, err := server.NewGateway(nil)
			Expect(err).To(HaveOccurred())
			Expect(gateway).To(BeNil())
		})

		It("should return error when a dependency is missing", func() {
			gateway, err := server.NewGateway(&server.GatewayConfig{
				Logger: logger,
				Store:  store,
				Mode:   mode,
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("alerter"))
			Expect(gateway).To(BeNil())
		})
	})

	Describe("GET /", func() {
		It("should return the greeting", func() {
			rec := do(http.MethodGet, "/", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("roomwatch"))
		})
	})

	Describe("GET /health", func() {
		It("should report ok", func() {
			rec := do(http.MethodGet, "/health", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"status":"ok"}`))
		})
	})

	Describe("POST /register", func() {
		It("should create a user", func() {
			rec := do(http.MethodPost, "/register", `{"username":"alice","password":"s3cret"}`)
			Expect(rec.Code).To(Equal(http.StatusCreated))
		})

		It("should reject missing fields", func() {
			rec := do(http.MethodPost, "/register", `{"username":"alice"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var body map[string]string
			decode(rec, &body)
			Expect(body).To(HaveKey("error"))
		})

		It("should reject a taken username with no new record", func() {
			Expect(do(http.MethodPost, "/register", `{"username":"alice","password":"s3cret"}`).Code).To(Equal(http.StatusCreated))

			rec := do(http.MethodPost, "/register", `{"username":"alice","password":"other"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			// The original credentials still work.
			Expect(do(http.MethodPost, "/login", `{"username":"alice","password":"s3cret"}`).Code).To(Equal(http.StatusOK))
		})

		It("should reject a malformed body", func() {
			rec := do(http.MethodPost, "/register", `{"username":`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /login", func() {
		BeforeEach(func() {
			Expect(do(http.MethodPost, "/register", `{"username":"alice","password":"s3cret"}`).Code).To(Equal(http.StatusCreated))
		})

		It("should return the username on success", func() {
			rec := do(http.MethodPost, "/login", `{"username":"alice","password":"s3cret"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body map[string]string
			decode(rec, &body)
			Expect(body["username"]).To(Equal("alice"))
		})

		It("should return 401 for a wrong password", func() {
			rec := do(http.MethodPost, "/login", `{"username":"alice","password":"wrong"}`)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should return 401 for an unknown user", func() {
			rec := do(http.MethodPost, "/login", `{"username":"bob","password":"s3cret"}`)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("POST /esp-data and GET /data", func() {
		It("should store a read and list it as the most recent entry", func() {
			rec := do(http.MethodPost, "/esp-data", `{"tagId":"A1B2","status":"detected"}`)
			Expect(rec.Code).To(Equal(http.StatusCreated))

			rec = do(http.MethodGet, "/data?limit=1", "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var events []map[string]any
			decode(rec, &events)
			Expect(events).To(HaveLen(1))
			Expect(events[0]["tagId"]).To(Equal("A1B2"))
			Expect(events[0]["status"]).To(Equal("detected"))
			Expect(events[0]).To(HaveKey("observedAt"))
		})

		It("should accept the legacy rfid_tag key", func() {
			rec := do(http.MethodPost, "/esp-data", `{"rfid_tag":"C3D4","status":"detected"}`)
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var events []map[string]any
			decode(do(http.MethodGet, "/data?limit=1", ""), &events)
			Expect(events[0]["tagId"]).To(Equal("C3D4"))
		})

		It("should reject a read with missing required fields", func() {
			rec := do(http.MethodPost, "/esp-data", `{"status":"detected"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		DescribeTable("should fall back to the default limit on bad input",
			func(query string) {
				Expect(do(http.MethodPost, "/esp-data", `{"tagId":"A1B2","status":"detected"}`).Code).To(Equal(http.StatusCreated))
				Expect(do(http.MethodPost, "/esp-data", `{"tagId":"C3D4","status":"absent"}`).Code).To(Equal(http.StatusCreated))

				rec := do(http.MethodGet, "/data"+query, "")
				Expect(rec.Code).To(Equal(http.StatusOK))

				var events []map[string]any
				decode(rec, &events)
				Expect(events).To(HaveLen(2))
			},
			Entry("omitted", ""),
			Entry("zero", "?limit=0"),
			Entry("negative", "?limit=-5"),
			Entry("non-numeric", "?limit=abc"),
		)
	})

	Describe("GET /mode and POST /mode", func() {
		It("should default to in-room", func() {
			rec := do(http.MethodGet, "/mode", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"inRoom":true}`))
		})

		It("should round-trip a mode change", func() {
			rec := do(http.MethodPost, "/mode", `{"inRoom":false}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"inRoom":false}`))

			Expect(do(http.MethodGet, "/mode", "").Body.String()).To(MatchJSON(`{"inRoom":false}`))
		})

		It("should reject a malformed body", func() {
			rec := do(http.MethodPost, "/mode", `{`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should publish a notification on transition", func() {
			do(http.MethodPost, "/mode", `{"inRoom":false}`)

			payloads := publisher.pushedPayloads()
			Expect(payloads).To(HaveLen(1))

			var notification server.Notification
			Expect(json.Unmarshal(payloads[0], &notification)).To(Succeed())
			Expect(notification.Type).To(Equal(server.NotificationModeChange))
			Expect(notification.InRoom).NotTo(BeNil())
			Expect(*notification.InRoom).To(BeFalse())
		})

		It("should not publish when the mode is unchanged", func() {
			do(http.MethodPost, "/mode", `{"inRoom":true}`)
			Expect(publisher.pushedPayloads()).To(BeEmpty())
		})
	})

	Describe("POST /token", func() {
		It("should save a token", func() {
			rec := do(http.MethodPost, "/token", `{"token":"xyz"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("should reject a missing token", func() {
			rec := do(http.MethodPost, "/token", `{}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should keep one record across repeated registrations", func() {
			Expect(do(http.MethodPost, "/token", `{"token":"xyz"}`).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodPost, "/token", `{"token":"xyz"}`).Code).To(Equal(http.StatusOK))

			count, err := store.CountTokens(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Describe("POST /buzzer/on", func() {
		It("should fire the buzzer and publish a notification", func() {
			rec := do(http.MethodPost, "/buzzer/on", "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			payloads := publisher.pushedPayloads()
			Expect(payloads).To(HaveLen(1))

			var notification server.Notification
			Expect(json.Unmarshal(payloads[0], &notification)).To(Succeed())
			Expect(notification.Type).To(Equal(server.NotificationBuzzer))
		})

		It("should fire independently on every call", func() {
			do(http.MethodPost, "/buzzer/on", "")
			do(http.MethodPost, "/buzzer/on", "")
			Expect(publisher.pushedPayloads()).To(HaveLen(2))
		})
	})
})
