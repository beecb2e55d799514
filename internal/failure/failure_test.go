package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindsAreDistinguishable(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{Unresolved(KindRoom, "R-X"), "unresolved"},
		{&NoPathError{From: "a", To: "b"}, "no_path"},
		{&ProviderError{Msg: "empty geometry"}, "outdoor"},
		{&FetchError{Dataset: "corridors", Err: errors.New("boom")}, "data_fetch"},
		{&MalformedError{Entity: "level", Reason: "x"}, "malformed"},
		{errors.New("other"), "internal"},
	}
	for _, c := range cases {
		wrapped := fmt.Errorf("route: %w", c.err)
		if got := KindOf(wrapped); got != c.want {
			t.Fatalf("expected %q for %v, got %q", c.want, c.err, got)
		}
	}
}

func TestUnresolvedMessageNamesEntity(t *testing.T) {
	err := Unresolved(KindRoom, "NOPE")
	if err.Error() != "room not found: NOPE" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	var ue *UnresolvedError
	if !errors.As(err, &ue) || ue.ID != "NOPE" {
		t.Fatalf("expected UnresolvedError carrying id, got %#v", err)
	}
}

func TestProviderErrorUnwrapsCause(t *testing.T) {
	err := &ProviderError{Msg: "request failed", Err: context.DeadlineExceeded}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline cause to be visible")
	}
	if !errors.Is(err, ErrOutdoorRoute) {
		t.Fatalf("expected outdoor sentinel")
	}
}
