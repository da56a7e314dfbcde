package validation

import (
	"errors"
	"testing"
)

func TestParseObjectID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "native id",
			raw:  "65a1f0c2e4b0a1b2c3d4e5f6",
			want: "65a1f0c2e4b0a1b2c3d4e5f6",
		},
		{
			name: "native id upper case",
			raw:  "65A1F0C2E4B0A1B2C3D4E5F6",
			want: "65a1f0c2e4b0a1b2c3d4e5f6",
		},
		{
			name: "legacy numeric id",
			raw:  "101",
			want: "000000000000000000000101",
		},
		{
			name: "legacy numeric id of full length",
			raw:  "000000000000000000000003",
			want: "000000000000000000000003",
		},
		{
			name:    "numeric id too long",
			raw:     "1234567890123456789012345",
			wantErr: true,
		},
		{
			name:    "not hex",
			raw:     "not-an-object-id-at-all!",
			wantErr: true,
		},
		{
			name:    "empty string",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseObjectID(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("ParseObjectID(%q) error = %v, want ErrInvalid", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseObjectID(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("ParseObjectID(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNewObjectIDRoundTrip(t *testing.T) {
	id := NewObjectID()
	got, err := ParseObjectID(id)
	if err != nil {
		t.Fatalf("ParseObjectID(%q) error: %v", id, err)
	}
	if got != id {
		t.Fatalf("ParseObjectID(%q) = %q", id, got)
	}
}
