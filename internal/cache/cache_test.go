package cache

import (
	"fmt"
	"sync"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/justyntemme/duopane/internal/fs"
	"github.com/justyntemme/duopane/internal/panel"
)

func listing(tag string, n int) []fs.Entry {
	out := make([]fs.Entry, n)
	for i := range out {
		out[i] = fs.Entry{Name: fmt.Sprintf("%s-%d", tag, i), Path: fmt.Sprintf("/%s/%d", tag, i)}
	}
	return out
}

func TestReplaceAndGet(t *testing.T) {
	g := NewWithT(t)
	c := New()

	g.Expect(c.Get(panel.Left)).To(BeEmpty())

	in := listing("a", 3)
	c.Replace(panel.Left, in)
	in[0].Name = "mutated"

	g.Expect(c.Len(panel.Left)).To(Equal(3))
	g.Expect(c.Get(panel.Left)[0].Name).To(Equal("a-0"), "Replace must copy its input")
	g.Expect(c.Get(panel.Right)).To(BeEmpty(), "sides are independent")

	c.Replace(panel.Left, nil)
	g.Expect(c.Get(panel.Left)).To(BeEmpty())
}

func TestReadersSeeWholeLists(t *testing.T) {
	g := NewWithT(t)
	c := New()
	c.Replace(panel.Right, listing("old", 50))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 100)

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				list := c.Get(panel.Right)
				if len(list) != 50 && len(list) != 80 {
					errs <- fmt.Sprintf("unexpected length %d", len(list))
					return
				}
				want := "old"
				if len(list) == 80 {
					want = "new"
				}
				for i, e := range list {
					if e.Name != fmt.Sprintf("%s-%d", want, i) {
						errs <- "mixed listing: " + e.Name
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			c.Replace(panel.Right, listing("new", 80))
		} else {
			c.Replace(panel.Right, listing("old", 50))
		}
	}
	close(stop)
	wg.Wait()
	close(errs)

	for msg := range errs {
		g.Expect(msg).To(BeEmpty())
	}
}
