package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnswerEqualSingle(t *testing.T) {
	assert.True(t, SingleAnswer("a").Equal(SingleAnswer("a")))
	assert.False(t, SingleAnswer("a").Equal(SingleAnswer("b")))
}

func TestAnswerEqualMultipleIgnoresOrder(t *testing.T) {
	correct := MultipleAnswer("b", "c")

	assert.True(t, correct.Equal(MultipleAnswer("c", "b")))
	assert.False(t, correct.Equal(MultipleAnswer("b")))
	assert.False(t, correct.Equal(MultipleAnswer("b", "d")))
}

func TestAnswerEqualKindMismatch(t *testing.T) {
	// A single value is not the same answer as a one-element set.
	assert.False(t, SingleAnswer("a").Equal(MultipleAnswer("a")))
}

func TestDecodeAnswerRejectsInvalid(t *testing.T) {
	_, err := DecodeAnswer(`{"kind":"single","values":[]}`)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = DecodeAnswer(`{"kind":"ranked","values":["a"]}`)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = DecodeAnswer(`not json`)
	assert.Error(t, err)

	got, err := DecodeAnswer(EncodeAnswer(MultipleAnswer("x", "y")))
	assert.NoError(t, err)
	assert.True(t, got.Equal(MultipleAnswer("y", "x")))
}
