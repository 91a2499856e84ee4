package artifact_test

import (
	"reflect"
	"testing"

	"github.com/deepankarm/artifactstream/pkg/artifact"
)

func TestCoalescer_EmitsOnlyChanges(t *testing.T) {
	c := artifact.NewCoalescer()

	var emitted []string
	for _, buf := range []string{`{"html":"a`, `{"html":"ab`, `{"html":"ab"`, `{"html":"ab",`} {
		v := artifact.Extract(buf, artifact.HTML).Value
		if c.Update(artifact.HTML, v) {
			emitted = append(emitted, v)
		}
	}

	want := []string{"a", "ab"}
	if !reflect.DeepEqual(emitted, want) {
		t.Errorf("emitted = %q, want %q", emitted, want)
	}
}

func TestCoalescer_InitialValueIsEmpty(t *testing.T) {
	c := artifact.NewCoalescer()

	if c.Update(artifact.CSS, "") {
		t.Error("empty value must not be emitted before anything else")
	}
	if c.Last(artifact.CSS) != "" {
		t.Errorf("Last = %q", c.Last(artifact.CSS))
	}
}

func TestCoalescer_FieldsAreIndependent(t *testing.T) {
	c := artifact.NewCoalescer()

	if !c.Update(artifact.HTML, "x") {
		t.Fatal("expected html emit")
	}
	if !c.Update(artifact.JS, "x") {
		t.Error("same value on another field must still be emitted")
	}
	if c.Last(artifact.CSS) != "" {
		t.Error("css must be untouched")
	}
}

func TestCoalescer_Reset(t *testing.T) {
	c := artifact.NewCoalescer()
	c.Update(artifact.HTML, "x")
	c.Reset()

	if c.Last(artifact.HTML) != "" {
		t.Errorf("Last after Reset = %q", c.Last(artifact.HTML))
	}
	if !c.Update(artifact.HTML, "x") {
		t.Error("value must be emitted again after Reset")
	}
}

func TestCoalescer_ZeroValue(t *testing.T) {
	var c artifact.Coalescer
	if !c.Update(artifact.HTML, "x") {
		t.Error("zero Coalescer should be usable")
	}
	if c.Update(artifact.HTML, "x") {
		t.Error("duplicate emitted")
	}
}
