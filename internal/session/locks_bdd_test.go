//go:build test

package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestLocksSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Session Locks Suite")
}

var _ = Describe("switchLockTable", func() {
	var table *switchLockTable

	BeforeEach(func() {
		table = newSwitchLockTable()
	})

	Context("when acquiring a single switch set", func() {
		It("returns a release function that unlocks every held mutex", func() {
			release := table.acquire([]string{"s1", "s2"})
			Expect(release).NotTo(BeNil())
			release()
		})
	})

	Context("when two overlapping switch sets are acquired concurrently", func() {
		It("serialises the overlapping holder instead of racing", func() {
			var order []string
			var mu sync.Mutex
			var wg sync.WaitGroup
			wg.Add(2)

			go func() {
				defer wg.Done()
				release := table.acquire([]string{"s1", "s2"})
				mu.Lock()
				order = append(order, "first-acquired")
				mu.Unlock()
				time.Sleep(20 * time.Millisecond)
				release()
			}()
			time.Sleep(5 * time.Millisecond)
			go func() {
				defer wg.Done()
				release := table.acquire([]string{"s2", "s3"})
				mu.Lock()
				order = append(order, "second-acquired")
				mu.Unlock()
				release()
			}()
			wg.Wait()

			Expect(order).To(HaveLen(2))
			Expect(order[0]).To(Equal("first-acquired"))
		})
	})

	Context("when the same switch appears twice in one request", func() {
		It("does not deadlock on self-overlap", func() {
			done := make(chan struct{})
			go func() {
				release := table.acquire([]string{"s1", "s1", "s1"})
				release()
				close(done)
			}()
			Eventually(done, time.Second).Should(BeClosed())
		})
	})
})

var _ = Describe("keyedMutex", func() {
	var km *keyedMutex

	BeforeEach(func() {
		km = newKeyedMutex()
	})

	It("serialises operations sharing the same key", func() {
		var counter int32
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release := km.lock("same-key")
				defer release()
				atomic.AddInt32(&counter, 1)
			}()
		}
		wg.Wait()
		Expect(atomic.LoadInt32(&counter)).To(BeEquivalentTo(10))
	})

	It("lets unrelated keys proceed independently", func() {
		releaseA := km.lock("a")
		done := make(chan struct{})
		go func() {
			release := km.lock("b")
			release()
			close(done)
		}()
		Eventually(done, time.Second).Should(BeClosed())
		releaseA()
	})
})
