package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFromFilename(t *testing.T) {
	cases := []struct {
		name string
		want FileKind
		ok   bool
	}{
		{"report.pdf", KindPDF, true},
		{"SCAN.PDF", KindPDF, true},
		{"photo.jpg", KindJPEG, true},
		{"photo.jpeg", KindJPEG, true},
		{"chart.png", KindPNG, true},
		{"fax.tif", KindTIFF, true},
		{"fax.tiff", KindTIFF, true},
		{"old.bmp", KindBMP, true},
		{"notes.docx", "", false},
		{"noextension", "", false},
	}

	for _, tc := range cases {
		kind, ok := KindFromFilename(tc.name)
		assert.Equal(t, tc.ok, ok, tc.name)
		assert.Equal(t, tc.want, kind, tc.name)
	}
}

func TestIsImage(t *testing.T) {
	assert.False(t, KindPDF.IsImage())
	for _, k := range []FileKind{KindPNG, KindJPEG, KindTIFF, KindBMP} {
		assert.True(t, k.IsImage())
	}
}
