package ics

import (
	"bytes"

	"github.com/klauspost/compress/zip"

	"predicacal/internal/apperr"
	"predicacal/internal/model"
)

// Names used inside and for the export archive.
const (
	BundleFilename = "calendarios.zip"
	AppleFilename  = "calendario_apple.ics"
	GoogleFilename = "calendario_google.ics"
)

// Bundle zips the Apple and Google flavours of events into one archive.
func Bundle(events []model.CalendarEvent, opts Options) ([]byte, error) {
	files := []struct {
		name   string
		flavor Flavor
	}{
		{AppleFilename, FlavorApple},
		{GoogleFilename, FlavorGoogle},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.name, Method: zip.Deflate, Modified: opts.now()})
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, err, "add %s", f.name)
		}
		if _, err := w.Write([]byte(Export(events, f.flavor, opts))); err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, err, "write %s", f.name)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "finish %s", BundleFilename)
	}
	return buf.Bytes(), nil
}
