package errs

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := Capacity("room is full")
	assert.Equal(t, KindCapacity, KindOf(err))
	assert.Equal(t, "room is full", err.Error())
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("accept player: %w", State("room is not waiting"))
	assert.Equal(t, KindState, KindOf(err))
	assert.True(t, IsKind(err, KindState))
}

func TestKindOf_Plain(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(fmt.Errorf("boom")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("bad capacity"), http.StatusBadRequest},
		{NotFound("no such room"), http.StatusNotFound},
		{Permission("host only"), http.StatusForbidden},
		{State("not waiting"), http.StatusConflict},
		{Conflict("duplicate join"), http.StatusConflict},
		{Capacity("full"), http.StatusConflict},
		{EmptyLibrary("empty"), http.StatusConflict},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "kind %s", KindOf(tt.err))
	}
}
