package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Southclaws/fault/ftag"
	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	assert := assert.New(t)

	err := Rejectf("no notes in %s", "a.mid")
	assert.True(Is(err, InputRejected))
	assert.False(Is(err, TheoryKernel))
	assert.Contains(err.Error(), "no notes in a.mid")

	wrapped := WrapRejected(errors.New("bad header"), "malformed MIDI")
	assert.True(Is(wrapped, InputRejected))
	assert.Contains(wrapped.Error(), "bad header")

	assert.True(Is(Kernel("unknown pcset %03x", 0x891), TheoryKernel))
	assert.True(Is(Tag(errors.New("x"), Inconsistent, "empty"), Inconsistent))
}

func TestMessagesSurviveTagging(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
		kind ftag.Kind
	}{
		{name: "reject", err: Reject("zero notes", "the file contains no notes"), want: "zero notes", kind: InputRejected},
		{name: "rejectf", err: Rejectf("unsupported format %q", "wav"), want: `unsupported format "wav"`, kind: InputRejected},
		{name: "kernel", err: Kernel("unknown numeral %q", "Q7"), want: `unknown numeral "Q7"`, kind: TheoryKernel},
		{name: "wrap rejected", err: WrapRejected(errors.New("bad header"), "malformed MIDI"), want: "malformed MIDI: bad header", kind: InputRejected},
		{name: "tag", err: Tag(errors.New("no candidates"), Inconsistent, "bar 3"), want: "bar 3: no candidates", kind: Inconsistent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.Equal(t, tt.want, fmt.Sprint(tt.err))
			assert.NotContains(t, tt.err.Error(), "<ftag>")
			assert.True(t, Is(tt.err, tt.kind))
		})
	}
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, WrapRejected(nil, "m"))
	assert.Nil(t, Tag(nil, Inconsistent, "m"))
	assert.False(t, Is(nil, InputRejected))
	assert.Equal(t, "", Issue(nil))
}

func TestIssue(t *testing.T) {
	err := Reject("zero notes", "the file contains no notes")
	assert.Equal(t, "the file contains no notes", Issue(err))
	assert.Equal(t, "plain", Issue(errors.New("plain")))
}
