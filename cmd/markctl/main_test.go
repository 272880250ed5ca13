package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ha1tch/imgmark/internal/config"
	"github.com/ha1tch/imgmark/pkg/annotation"
	"github.com/ha1tch/imgmark/pkg/geom"
)

func TestParseRenderArgs(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name    string
		args    []string
		want    renderArgs
		wantErr bool
	}{
		{
			name: "defaults",
			args: []string{"out/annotations.json"},
			want: renderArgs{input: "out/annotations.json", output: "out/annotations.png", width: 1024, height: 768, labels: true},
		},
		{
			name: "all options",
			args: []string{"a.json", "-i", "floor.jpg", "-o", "x.svg", "--width", "640", "--height", "480", "--no-labels", "--markers"},
			want: renderArgs{input: "a.json", image: "floor.jpg", output: "x.svg", width: 640, height: 480, markers: true},
		},
		{name: "missing input", args: []string{"-o", "x.png"}, wantErr: true},
		{name: "bad width", args: []string{"a.json", "--width", "wide"}, wantErr: true},
		{name: "unknown flag", args: []string{"a.json", "--fast"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRenderArgs(tt.args, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadAnnotations(t *testing.T) {
	end := geom.Point{X: 90, Y: 90}
	items := []annotation.Annotation{
		annotation.Polygon{ID: 1, Points: []geom.Point{{X: 10, Y: 10}, {X: 50, Y: 10}, {X: 50, Y: 50}}, Closed: true, Label: "Zone"},
		annotation.Arrow{ID: 2, Start: geom.Point{X: 60, Y: 60}, End: &end, Label: "Direction", Description: "exit"},
	}
	data, err := annotation.ToJSON(items)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), annotation.ExportFilename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := loadAnnotations(path)
	if err != nil {
		t.Fatalf("loadAnnotations: %v", err)
	}
	if zones, arrows := countKinds(got); zones != 1 || arrows != 1 {
		t.Errorf("countKinds = %d, %d; want 1, 1", zones, arrows)
	}

	line := describe(1, got[1])
	for _, want := range []string{"2", "arrow", "Direction", "(60.00, 60.00) -> (90.00, 90.00)", "# exit"} {
		if !strings.Contains(line, want) {
			t.Errorf("describe() = %q, missing %q", line, want)
		}
	}
}

func TestRelativeHref(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "renders", "overlay.svg")
	img := filepath.Join(dir, "photos", "floor.jpg")
	if got := relativeHref(out, img); got != "../photos/floor.jpg" {
		t.Errorf("relativeHref = %q", got)
	}
}
