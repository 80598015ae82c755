package memory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tasktracker/internal/adapter/database/memory"
	"tasktracker/internal/core/port"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
)

func TestCacheRepository_SetGetDelete(t *testing.T) {
	RegisterTestingT(t)
	ctx := context.Background()
	c := memory.NewCacheRepository()
	defer c.Close()

	Expect(c.Set(ctx, "tasks:1:/tasks", []byte("page"), time.Minute)).To(Succeed())

	value, err := c.Get(ctx, "tasks:1:/tasks")
	Expect(err).To(BeNil())
	Expect(string(value)).To(Equal("page"))

	Expect(c.Delete(ctx, "tasks:1:/tasks")).To(Succeed())

	_, err = c.Get(ctx, "tasks:1:/tasks")
	assert.ErrorIs(t, err, port.ErrCacheMiss)
}

func TestCacheRepository_Expires(t *testing.T) {
	RegisterTestingT(t)
	ctx := context.Background()
	c := memory.NewCacheRepository()

	Expect(c.Set(ctx, "short", []byte("x"), 10*time.Millisecond)).To(Succeed())

	Eventually(func() error {
		_, err := c.Get(ctx, "short")
		return err
	}).WithTimeout(time.Second).Should(MatchError(port.ErrCacheMiss))
}

func TestCacheRepository_DeleteByPrefix(t *testing.T) {
	RegisterTestingT(t)
	ctx := context.Background()
	c := memory.NewCacheRepository()

	Expect(c.Set(ctx, "response:1:/tasks", []byte("a"), time.Minute)).To(Succeed())
	Expect(c.Set(ctx, "response:1:/tasks?page=2", []byte("b"), time.Minute)).To(Succeed())
	Expect(c.Set(ctx, "response:2:/tasks", []byte("c"), time.Minute)).To(Succeed())

	Expect(c.DeleteByPrefix(ctx, "response:1:")).To(Succeed())

	_, err := c.Get(ctx, "response:1:/tasks")
	assert.ErrorIs(t, err, port.ErrCacheMiss)
	_, err = c.Get(ctx, "response:1:/tasks?page=2")
	assert.ErrorIs(t, err, port.ErrCacheMiss)

	value, err := c.Get(ctx, "response:2:/tasks")
	Expect(err).To(BeNil())
	Expect(string(value)).To(Equal("c"))
}

func TestLocker_SerializesSameKey(t *testing.T) {
	RegisterTestingT(t)
	locker := memory.NewLocker()

	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, err := locker.Lock(context.Background(), "account:1")
			if err != nil {
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}

	wg.Wait()

	Expect(atomic.LoadInt32(&maxInside)).To(Equal(int32(1)))
}

func TestLocker_DifferentKeysDoNotBlock(t *testing.T) {
	RegisterTestingT(t)
	locker := memory.NewLocker()

	release, err := locker.Lock(context.Background(), "account:1")
	Expect(err).To(BeNil())
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	other, err := locker.Lock(ctx, "account:2")
	Expect(err).To(BeNil())
	other()
}

func TestLocker_ContextCancelled(t *testing.T) {
	RegisterTestingT(t)
	locker := memory.NewLocker()

	release, err := locker.Lock(context.Background(), "account:1")
	Expect(err).To(BeNil())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "account:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()

	again, err := locker.Lock(context.Background(), "account:1")
	Expect(err).To(BeNil())
	again()
}
