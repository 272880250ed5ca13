// Command markctl inspects, validates and renders exported image
// annotations.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ha1tch/imgmark/internal/config"
	"github.com/ha1tch/imgmark/pkg/annotation"
	"github.com/ha1tch/imgmark/pkg/imagefile"
	"github.com/ha1tch/imgmark/pkg/interact"
	"github.com/ha1tch/imgmark/pkg/render"
	"github.com/ha1tch/imgmark/pkg/session"
)

const usage = `markctl - image annotation toolkit

Usage:
  markctl [-v] <command> [options]

Commands:
  info       Show the annotations in an export
  validate   Check an export for structural problems
  render     Draw an export over its image (PNG or SVG)

Examples:
  markctl info annotations.json
  markctl validate annotations.json
  markctl render annotations.json -i floor.jpg -o floor-annotated.png
  markctl render annotations.json -i floor.jpg -o overlay.svg

Use "markctl <command> -h" for more information about a command.
`

func main() {
	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "-v" || args[0] == "--verbose") {
		session.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		args = args[1:]
	}
	if len(args) < 1 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "info":
		cmdInfo(args)
	case "validate":
		cmdValidate(args)
	case "render":
		cmdRender(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}

func cmdInfo(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: markctl info <annotations.json>")
		os.Exit(1)
	}

	input := args[0]
	items, err := loadAnnotations(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", input, err)
		os.Exit(1)
	}

	zones, arrows := countKinds(items)
	fmt.Printf("Annotations: %d\n", len(items))
	fmt.Printf("Zones:       %d\n", zones)
	fmt.Printf("Arrows:      %d\n", arrows)
	if len(items) == 0 {
		return
	}
	fmt.Println()
	for i, a := range items {
		fmt.Println(describe(i, a))
	}
}

func cmdValidate(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: markctl validate <annotations.json>")
		os.Exit(1)
	}

	input := args[0]
	items, err := loadAnnotations(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", input, err)
		os.Exit(1)
	}

	if err := annotation.Validate(items); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	zones, arrows := countKinds(items)
	fmt.Printf("%s: valid, %d zones, %d arrows\n", input, zones, arrows)
}

// renderArgs are the parsed options of the render command.
type renderArgs struct {
	input   string
	image   string
	output  string
	width   int
	height  int
	labels  bool
	markers bool
}

func parseRenderArgs(args []string, cfg config.Config) (renderArgs, error) {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return renderArgs{}, fmt.Errorf("missing input file")
	}
	ra := renderArgs{
		input:  args[0],
		width:  cfg.Render.Width,
		height: cfg.Render.Height,
		labels: true,
	}

	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-i", "--image":
			if i+1 < len(args) {
				ra.image = args[i+1]
				i++
			}
		case "-o", "--output":
			if i+1 < len(args) {
				ra.output = args[i+1]
				i++
			}
		case "--width", "--height":
			if i+1 >= len(args) {
				return ra, fmt.Errorf("%s needs a value", args[i])
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil || n <= 0 {
				return ra, fmt.Errorf("invalid %s: %s", args[i], args[i+1])
			}
			if args[i] == "--width" {
				ra.width = n
			} else {
				ra.height = n
			}
			i++
		case "--no-labels":
			ra.labels = false
		case "--markers":
			ra.markers = true
		default:
			return ra, fmt.Errorf("unknown option: %s", args[i])
		}
	}

	if ra.output == "" {
		base := strings.TrimSuffix(ra.input, filepath.Ext(ra.input))
		ra.output = base + "." + cfg.Render.FileType
	}
	return ra, nil
}

func cmdRender(args []string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}

	ra, err := parseRenderArgs(args, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Usage: markctl render <annotations.json> [-i image] [-o output.png|svg] [--width N] [--height N] [--no-labels] [--markers]")
		os.Exit(1)
	}

	items, err := loadAnnotations(ra.input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", ra.input, err)
		os.Exit(1)
	}

	var img *imagefile.Handle
	if ra.image != "" {
		img, err = imagefile.Open(ra.image)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", ra.image, err)
			os.Exit(1)
		}
		defer img.Close()
		ra.width, ra.height = img.Size()
	}

	sc := render.Project(items, interact.State{}, 0, false)

	switch strings.ToLower(filepath.Ext(ra.output)) {
	case ".svg":
		opts := render.DefaultSVGOptions()
		opts.Width, opts.Height = ra.width, ra.height
		opts.ShowLabels = ra.labels
		if ra.image != "" {
			opts.ImageHref = relativeHref(ra.output, ra.image)
		}
		err = os.WriteFile(ra.output, []byte(render.GenerateSVG(sc, opts)), 0644)
	case ".png":
		err = writePNG(ra, img, sc)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format: %s\n", filepath.Ext(ra.output))
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", ra.output, err)
		os.Exit(1)
	}

	fmt.Printf("Written: %s\n", ra.output)
}

func writePNG(ra renderArgs, img *imagefile.Handle, sc render.Scene) error {
	f, err := os.Create(ra.output)
	if err != nil {
		return err
	}
	opts := render.DefaultPNGOptions()
	opts.Width, opts.Height = ra.width, ra.height
	opts.ShowLabels = ra.labels
	opts.ShowMarkers = ra.markers

	if img != nil {
		err = render.RenderPNG(img.Image(), sc, f, opts)
	} else {
		err = render.RenderPNG(nil, sc, f, opts)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// relativeHref returns the image path as seen from the output's directory.
func relativeHref(output, image string) string {
	absOut, err1 := filepath.Abs(filepath.Dir(output))
	absImg, err2 := filepath.Abs(image)
	if err1 != nil || err2 != nil {
		return image
	}
	rel, err := filepath.Rel(absOut, absImg)
	if err != nil {
		return absImg
	}
	return filepath.ToSlash(rel)
}

func loadAnnotations(path string) ([]annotation.Annotation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return annotation.Parse(data)
}

func countKinds(items []annotation.Annotation) (zones, arrows int) {
	for _, a := range items {
		switch a.(type) {
		case annotation.Polygon:
			zones++
		case annotation.Arrow:
			arrows++
		}
	}
	return zones, arrows
}

// describe formats one annotation as a listing line.
func describe(i int, a annotation.Annotation) string {
	label, desc := annotation.Text(a)
	var shape string
	switch v := a.(type) {
	case annotation.Polygon:
		shape = fmt.Sprintf("%d vertices", len(v.Points))
		if !v.Closed {
			shape += ", open"
		}
	case annotation.Arrow:
		if v.Placed() {
			shape = fmt.Sprintf("(%.2f, %.2f) -> (%.2f, %.2f)", v.Start.X, v.Start.Y, v.End.X, v.End.Y)
		} else {
			shape = fmt.Sprintf("(%.2f, %.2f) -> ?", v.Start.X, v.Start.Y)
		}
	}
	line := fmt.Sprintf("%3d  %-8s %-20s %s", i+1, a.Kind(), label, shape)
	if desc != "" {
		line += "  # " + desc
	}
	return line
}
