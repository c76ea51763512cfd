package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", Validation("Missing 'image_data'"), http.StatusBadRequest},
		{"decode", Decode("bad image", errors.New("eof")), http.StatusBadRequest},
		{"recognition", Recognition("", errors.New("engine crashed")), http.StatusInternalServerError},
		{"wrapped decode", fmt.Errorf("request: %w", Decode("bad image", nil)), http.StatusBadRequest},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.expected {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestPublicMessage(t *testing.T) {
	cause := errors.New("tesseract: failed to load jpn.traineddata from /usr/share/tessdata")

	if got := PublicMessage(Recognition("", cause)); got != "Text recognition failed." {
		t.Errorf("expected default message, got %q", got)
	}
	if got := PublicMessage(Validation("Missing 'image_data'")); got != "Missing 'image_data'" {
		t.Errorf("expected safe message, got %q", got)
	}
	if got := PublicMessage(cause); got != "Request failed." {
		t.Errorf("unclassified errors must not leak, got %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("illegal base64 data at input byte 4")
	err := Decode("Invalid image data", cause)

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through errors.Is")
	}
	if kind, ok := KindOf(err); !ok || kind != KindDecode {
		t.Errorf("expected decode kind, got %q", kind)
	}
	if _, ok := KindOf(cause); ok {
		t.Error("plain errors have no kind")
	}
}
