package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"512", 512},
		{"500K", 500 * 1024},
		{"100M", 100 * 1024 * 1024},
		{"1G", 1 << 30},
		{"2T", 2 << 40},
		{"1g", 1 << 30},
		{" 4G ", 4 << 30},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		require.NoError(t, err, "ParseSize(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ParseSize(%q)", tt.in)
	}
}

func TestParseSizeErrors(t *testing.T) {
	for _, in := range []string{"", "G", "1.5G", "-1G", "10X", "1 G"} {
		_, err := ParseSize(in)
		assert.Error(t, err, "ParseSize(%q)", in)
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.0 KB", FormatSize(1024))
	assert.Equal(t, "100.0 MB", FormatSize(100<<20))
	assert.Equal(t, "64.0 GB", FormatSize(64<<30))
	assert.Equal(t, "1.5 GB", FormatSize(3<<29))
}
