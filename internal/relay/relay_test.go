package relay_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hapticlink/watch-relay/internal/relay"
	"github.com/hapticlink/watch-relay/pkg/status"
)

var _ = Describe("Relay", func() {
	var (
		peerDialer    *fakePeerDialer
		backendDialer *fakeBackendDialer
		sink          *recordingSink
		cfg           relay.Config
		r             *relay.Relay
	)

	BeforeEach(func() {
		r = nil
		peerDialer = &fakePeerDialer{alias: "UserID-123-SmartWatchID-456"}
		backendDialer = &fakeBackendDialer{monitoringType: "heartRate"}
		sink = &recordingSink{}
		cfg = relay.Config{
			PeerDialer:       peerDialer,
			BackendDialer:    backendDialer,
			DeviceName:       "Android-50",
			RetryLimit:       2,
			RetryDelay:       time.Millisecond,
			ThrottleInterval: time.Second,
			Sink:             sink,
		}
	})

	AfterEach(func() {
		if r != nil {
			r.Stop()
		}
	})

	start := func() *fakePeerConn {
		var err error
		r, err = relay.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Start()).To(Succeed())
		Eventually(peerDialer.connCount).Should(BeNumerically(">=", 1))
		return peerDialer.conn(0)
	}

	It("requires both dialers", func() {
		_, err := relay.New(relay.Config{PeerDialer: peerDialer})
		Expect(err).To(HaveOccurred())
	})

	It("delivers admitted samples with merged identifiers and location", func() {
		watch := start()
		r.UpdateLocation(31.7683, 35.2137)

		watch.emit("72", 1000)
		backend := backendDialer.backend(0)
		Eventually(backend.deliveredSamples).Should(HaveLen(1))

		sample := backend.deliveredSamples()[0]
		Expect(sample.HeartRate).To(Equal(72))
		Expect(sample.Latitude).To(Equal(31.7683))
		Expect(sample.Longitude).To(Equal(35.2137))
		Expect(sample.UserID).To(Equal("123"))
		Expect(sample.WatchID).To(Equal("456"))
		Expect(sample.DeviceID).To(Equal("50"))
		Expect(sample.CapturedAt).To(Equal(int64(1000)))
	})

	It("throttles samples closer than the interval and admits at the boundary", func() {
		watch := start()
		backend := backendDialer.backend(0)

		watch.emit("72", 1000)
		Eventually(backend.deliveredSamples).Should(HaveLen(1))

		watch.emit("75", 1500)
		Consistently(backend.deliveredSamples, 150*time.Millisecond).Should(HaveLen(1))

		watch.emit("80", 2000)
		Eventually(backend.deliveredSamples).Should(HaveLen(2))
		Expect(backend.deliveredSamples()[1].HeartRate).To(Equal(80))
	})

	It("drops invalid heart rates without advancing the throttle", func() {
		watch := start()
		backend := backendDialer.backend(0)

		watch.emit("abc", 1000)
		watch.emit("29", 1100)
		watch.emit("251", 1200)
		watch.emit("72", 1300)

		Eventually(backend.deliveredSamples).Should(HaveLen(1))
		Expect(backend.deliveredSamples()[0].HeartRate).To(Equal(72))
	})

	It("keeps the previous location fix when an update is invalid", func() {
		watch := start()
		backend := backendDialer.backend(0)

		r.UpdateLocation(31.7683, 35.2137)
		r.UpdateLocation(math.NaN(), 200)
		r.UpdateLocation(91, 0)

		watch.emit("72", 1000)
		Eventually(backend.deliveredSamples).Should(HaveLen(1))
		Expect(backend.deliveredSamples()[0].Latitude).To(Equal(31.7683))
		Expect(backend.deliveredSamples()[0].Longitude).To(Equal(35.2137))
	})

	It("recovers delivery after transient backend failures", func() {
		backendDialer.failures = 2
		watch := start()
		backend := backendDialer.backend(0)

		watch.emit("72", 1000)
		Eventually(backend.deliveredSamples).Should(HaveLen(1))
	})

	It("abandons a sample after retry exhaustion and recovers on the next", func() {
		// limit=2 allows three attempts per sample; the backend rejects
		// exactly that many, so the first sample is lost.
		backendDialer.failures = 3
		watch := start()
		backend := backendDialer.backend(0)

		watch.emit("72", 1000)
		watch.emit("80", 2000)

		Eventually(backend.deliveredSamples).Should(HaveLen(1))
		Expect(backend.deliveredSamples()[0].HeartRate).To(Equal(80))

		states := func() []status.Event { return sink.eventsOf(status.TypeBackendLink) }
		Eventually(states).ShouldNot(BeEmpty())
		last := states()[len(states())-1]
		Expect(last.State).To(Equal(status.StateConnected))
	})

	It("forwards backend instructions to the wearable verbatim", func() {
		watch := start()
		backend := backendDialer.backend(0)

		Eventually(func() []status.Event {
			return sink.eventsOf(status.TypePeerLink)
		}).ShouldNot(BeEmpty())

		backend.pushInstruction("buzz-short")
		backend.pushInstruction("buzz-long")
		Eventually(watch.sentPayloads).Should(Equal([]string{"buzz-short", "buzz-long"}))
	})

	It("reports the monitoring type fetched from the backend", func() {
		start()
		Eventually(r.MonitoringType).Should(Equal("heartRate"))

		events := sink.eventsOf(status.TypeMonitoringType)
		Expect(events[0].State).To(Equal(status.StatePending))
		last := events[len(events)-1]
		Expect(last.State).To(Equal(status.StateConnected))
		Expect(last.Value).To(Equal("heartRate"))
	})

	It("reports the monitoring type as disconnected when the fetch exhausts retries", func() {
		backendDialer.monitoringType = ""
		start()

		Eventually(func() []status.Event {
			return sink.eventsOf(status.TypeMonitoringType)
		}).Should(HaveLen(2))
		events := sink.eventsOf(status.TypeMonitoringType)
		Expect(events[1].State).To(Equal(status.StateDisconnected))
	})

	It("is idempotent under repeated Start and Stop", func() {
		start()
		Expect(r.Start()).To(Succeed())
		Expect(backendDialer.dialCount()).To(Equal(1))
		Expect(r.Running()).To(BeTrue())

		r.Stop()
		r.Stop()
		Expect(r.Running()).To(BeFalse())
	})

	It("tears down fully before reconnecting", func() {
		start()
		Expect(r.ForceReconnect()).To(Succeed())

		Expect(backendDialer.dialCount()).To(Equal(2))
		Expect(backendDialer.backend(0).isClosed()).To(BeTrue())
		Expect(backendDialer.backend(1).isClosed()).To(BeFalse())
		Eventually(peerDialer.connCount).Should(Equal(2))
		Expect(r.Running()).To(BeTrue())
	})

	It("releases both connections on Stop", func() {
		watch := start()
		backend := backendDialer.backend(0)

		r.Stop()
		Expect(backend.isClosed()).To(BeTrue())

		watch.mu.Lock()
		closed := watch.closed
		watch.mu.Unlock()
		Expect(closed).To(BeTrue())
	})
})
