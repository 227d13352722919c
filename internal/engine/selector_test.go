package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reality2byte/nanoc/internal/site"
)

func selectorReps(ids ...string) (*site.RepSet, []*site.ItemRep) {
	set := site.NewRepSet()
	var reps []*site.ItemRep
	for _, id := range ids {
		rep := site.NewItemRep(site.NewItem(id, nil, nil), "default")
		set.Add(rep)
		reps = append(reps, rep)
	}
	return set, reps
}

// waitsOn returns a compile func where each rep suspends on the listed
// rep until that rep has completed.
func waitsOn(blockers map[string]string) (func(*site.ItemRep) Result, *[]string) {
	var order []string
	done := map[string]bool{}
	return func(rep *site.ItemRep) Result {
		id := rep.Item.Identifier
		order = append(order, id)
		if b, ok := blockers[id]; ok && !done[b] {
			return suspended(site.RepRef(b, "default"), site.SnapshotLast)
		}
		done[id] = true
		return completed()
	}, &order
}

func TestSelectorRunsBlockerFirst(t *testing.T) {
	set, reps := selectorReps("/a.md", "/b.md", "/c.md")
	s := NewSelector(reps[:1], set, NewQuotaEnforcer(DefaultQuota(3)), false)

	compile, order := waitsOn(map[string]string{"/a.md": "/b.md", "/b.md": "/c.md"})
	require.NoError(t, s.Each(compile))
	assert.Equal(t, []string{"/a.md", "/b.md", "/c.md", "/b.md", "/a.md"}, *order)
	assert.True(t, s.Done(reps[2].Ref()), "blockers outside the todo list compile too")
}

func TestSelectorSkipsRepsAlreadyDone(t *testing.T) {
	set, reps := selectorReps("/a.md", "/b.md")
	s := NewSelector(reps, set, NewQuotaEnforcer(DefaultQuota(2)), false)

	compile, order := waitsOn(map[string]string{"/a.md": "/b.md"})
	require.NoError(t, s.Each(compile))
	assert.Equal(t, []string{"/a.md", "/b.md", "/a.md"}, *order)
}

func TestSelectorCycle(t *testing.T) {
	set, reps := selectorReps("/a.md", "/b.md")
	s := NewSelector(reps, set, NewQuotaEnforcer(DefaultQuota(2)), true)

	compile, _ := waitsOn(map[string]string{"/a.md": "/b.md", "/b.md": "/a.md"})
	err := s.Each(compile)
	require.Error(t, err)
	assert.True(t, IsCycleError(err), "cycles end the run even when failures are scoped")
}

func TestSelectorUnknownBlocker(t *testing.T) {
	set, reps := selectorReps("/a.md")
	s := NewSelector(reps, set, NewQuotaEnforcer(DefaultQuota(1)), false)

	compile, _ := waitsOn(map[string]string{"/a.md": "/missing.md"})
	err := s.Each(compile)
	assert.True(t, site.IsInternalInconsistency(err))
}

func TestSelectorKeepGoing(t *testing.T) {
	set, reps := selectorReps("/a.md", "/b.md", "/c.md")
	boom := errors.New("boom")
	compile := func(rep *site.ItemRep) Result {
		switch rep.Item.Identifier {
		case "/a.md":
			return suspended(site.RepRef("/b.md", "default"), site.SnapshotLast)
		case "/b.md":
			return failed(boom)
		}
		return completed()
	}

	s := NewSelector(reps, set, NewQuotaEnforcer(DefaultQuota(3)), true)
	err := s.Each(compile)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []site.Ref{reps[0].Ref(), reps[1].Ref()}, s.Failed())
	assert.True(t, s.Done(reps[2].Ref()))

	var ce *CompilationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, reps[0].Ref(), ce.Rep, "a fails because its blocker failed")
}

func TestSelectorStopsOnFirstFailure(t *testing.T) {
	set, reps := selectorReps("/a.md", "/b.md")
	calls := 0
	s := NewSelector(reps, set, NewQuotaEnforcer(DefaultQuota(2)), false)
	err := s.Each(func(*site.ItemRep) Result {
		calls++
		return failed(errors.New("boom"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsCompilationError(err))
}
