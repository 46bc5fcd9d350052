package capture

import (
	"context"
	"testing"

	"predicacal/internal/apperr"
)

func TestCapturePNGRequiresURL(t *testing.T) {
	_, err := Chromium{}.CapturePNG(context.Background(), Options{})
	if !apperr.Is(err, apperr.CodeInvalidArgument) {
		t.Errorf("err = %v", err)
	}
}
