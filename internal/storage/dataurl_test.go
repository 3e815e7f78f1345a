package storage

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestParseImageDataURL(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	raw := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	image, err := ParseImageDataURL(raw)
	if err != nil {
		t.Fatalf("parse data url: %v", err)
	}

	if image.ContentType != "image/png" || image.Extension != "png" {
		t.Fatalf("unexpected media detection: %+v", image)
	}

	if !bytes.Equal(image.Data, payload) {
		t.Fatalf("expected payload round trip, got %v", image.Data)
	}
}

func TestParseImageDataURLRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"plain url", "https://example.com/avatar.png", ErrNotDataURL},
		{"missing payload", "data:image/png;base64", ErrNotDataURL},
		{"not base64 encoding", "data:image/png;utf8,hello", ErrNotDataURL},
		{"unsupported type", "data:application/pdf;base64,aGVsbG8=", ErrUnknownMedia},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseImageDataURL(tc.raw); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseImageDataURLRejectsOversizedPayload(t *testing.T) {
	big := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0xff}, MaxImageBytes+1))
	raw := "data:image/jpeg;base64," + big

	if _, err := ParseImageDataURL(raw); !errors.Is(err, ErrImageTooBig) {
		t.Fatalf("expected ErrImageTooBig, got %v", err)
	}
}

func TestParseImageDataURLRejectsCorruptBase64(t *testing.T) {
	raw := "data:image/png;base64," + strings.Repeat("?", 8)

	if _, err := ParseImageDataURL(raw); err == nil {
		t.Fatal("expected decode error for corrupt payload")
	}
}
