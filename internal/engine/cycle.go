package engine

import "github.com/Reality2byte/nanoc/internal/site"

// CycleDetector tracks which rep each suspended rep is waiting on.
//
// A cycle exists when following the waits-on links from a newly blocked
// rep leads back to it:
//
//	/a.md#default reads /b.md compiled content -> suspends on /b.md#default
//	/b.md#default reads /a.md compiled content -> suspends on /a.md#default
//	-> /a.md#default is still waiting on /b.md#default  <- CYCLE DETECTED
//
// A rep that reads its own compiled content is a cycle of length one.
type CycleDetector struct {
	waitsOn map[site.Ref]site.Ref
}

// NewCycleDetector creates a new cycle detector.
func NewCycleDetector() *CycleDetector {
	return &CycleDetector{waitsOn: map[site.Ref]site.Ref{}}
}

// Block records that rep waits on blocker and returns the cycle path if
// the wait closes a cycle. The path starts and ends with rep.
func (c *CycleDetector) Block(rep, blocker site.Ref) []site.Ref {
	c.waitsOn[rep] = blocker

	path := []site.Ref{rep}
	seen := map[site.Ref]bool{rep: true}
	cur := blocker
	for {
		path = append(path, cur)
		if cur == rep {
			return path
		}
		if seen[cur] {
			// A cycle not involving rep; it was reported when it formed.
			return nil
		}
		seen[cur] = true
		next, ok := c.waitsOn[cur]
		if !ok {
			return nil
		}
		cur = next
	}
}

// Unblock removes rep's wait, once it has compiled.
func (c *CycleDetector) Unblock(rep site.Ref) {
	delete(c.waitsOn, rep)
}

// Waiting returns the number of reps currently waiting.
func (c *CycleDetector) Waiting() int {
	return len(c.waitsOn)
}

// WaitsOn returns the rep that rep waits on.
func (c *CycleDetector) WaitsOn(rep site.Ref) (site.Ref, bool) {
	b, ok := c.waitsOn[rep]
	return b, ok
}
