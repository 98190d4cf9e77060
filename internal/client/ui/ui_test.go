package ui

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, "done", Success.Sprint("done"))
	assert.Equal(t, "(3 notes)", Muted.Sprintf("%d notes", 3))
}

func TestBar(t *testing.T) {
	assert.Equal(t, "[..........]", Bar(0, 10))
	assert.Equal(t, "[#####.....]", Bar(50, 10))
	assert.Equal(t, "[##########]", Bar(100, 10))
	assert.Equal(t, "[##########]", Bar(250, 10))
	assert.Equal(t, "[....]", Bar(-5, 4))
}

func TestPrompter_Line(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("first\r\nsecond\nlast"), &out)

	for _, want := range []string{"first", "second", "last"} {
		got, err := p.Line("> ")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := p.Line("> ")
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "> > > > ", out.String())
}

func TestPrompter_PasswordNotTerminal(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("hunter2\n\n"), &out)

	pw, err := p.Password("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)

	_, err = p.Password("Password: ")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = p.Password("Password: ")
	assert.True(t, errors.Is(err, io.EOF))
}
