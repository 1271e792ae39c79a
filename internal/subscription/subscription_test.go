package subscription

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSetNotifiesInRegistrationOrder(t *testing.T) {
	var set Set[string]
	var got []string
	first := set.Add(func(v string) { got = append(got, "a:"+v) })
	defer first.Close()
	second := set.Add(func(v string) { got = append(got, "b:"+v) })

	set.Notify("x")
	_ = second.Close()
	_ = second.Close()
	set.Notify("y")

	if diff := cmp.Diff([]string{"a:x", "b:x", "a:y"}, got); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
	if set.Len() != 1 {
		t.Fatalf("Len = %d", set.Len())
	}
}

func TestListenerMayReleaseItself(t *testing.T) {
	var set Set[int]
	calls := 0
	var handle *Handle
	handle = set.Add(func(int) {
		calls++
		_ = handle.Close()
	})
	set.Notify(1)
	set.Notify(2)
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}
