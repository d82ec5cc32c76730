package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lab271/dmvoor/pkg/config"
)

func TestResolvePrefix(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		runID  string
		want   string
	}{
		{
			name:   "default prefix",
			prefix: "",
			runID:  "0b8e2f1a-2d6f-4b7e-9c41-7e5a1f3d9b20",
			want:   "datasets/runs/0b8e2f1a-2d6f-4b7e-9c41-7e5a1f3d9b20",
		},
		{
			name:   "custom prefix",
			prefix: "telemetry/dmv",
			runID:  "run123",
			want:   "telemetry/dmv/run123",
		},
		{
			name:   "trailing slash stripped",
			prefix: "my-prefix/",
			runID:  "run123",
			want:   "my-prefix/run123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &s3Uploader{
				cfg: &config.UploadConfig{Prefix: tt.prefix},
			}
			got := u.resolvePrefix(tt.runID)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "text export",
			path: "out/sys.query_store_runtime_stats.txt",
			want: "text/plain",
		},
		{
			name: "csv export",
			path: "out/csv/sys.query_store_plan.csv",
			want: "text/csv",
		},
		{
			name: "summary",
			path: "out/generation_summary.json",
			want: "application/json",
		},
		{
			name: "no extension",
			path: "out/Makefile",
			want: "application/octet-stream",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectContentType(tt.path)
			assert.Equal(t, tt.want, got)
		})
	}
}
