package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectPath(t *testing.T) {
	tests := []struct {
		name   string
		ref    string
		want   string
		wantOK bool
	}{
		{
			name:   "raw object path",
			ref:    "stories/u1/pic.jpg",
			want:   "stories/u1/pic.jpg",
			wantOK: true,
		},
		{
			name:   "firebase download url",
			ref:    "https://firebasestorage.googleapis.com/v0/b/app.appspot.com/o/stories%2Fu1%2Fpic.jpg?alt=media&token=abc",
			want:   "stories/u1/pic.jpg",
			wantOK: true,
		},
		{
			name:   "signed url",
			ref:    "https://storage.googleapis.com/app.appspot.com/stories/u1/pic_jpg_optimized.webp?GoogleAccessId=x&Expires=16725225600&Signature=sig",
			want:   "stories/u1/pic_jpg_optimized.webp",
			wantOK: true,
		},
		{
			name:   "gs uri",
			ref:    "gs://app.appspot.com/stories/u1/pic.jpg",
			want:   "stories/u1/pic.jpg",
			wantOK: true,
		},
		{
			name:   "empty",
			ref:    "  ",
			wantOK: false,
		},
		{
			name:   "foreign host",
			ref:    "https://cdn.example.com/pic.jpg",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ObjectPath(tt.ref)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
