package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ha1tch/imgmark/pkg/geom"
)

// ExportFilename is the name under which exports are delivered.
const ExportFilename = "annotations.json"

// jsonPolygon is the export representation of a Polygon.
// Field order is the key order of the output.
type jsonPolygon struct {
	ID          ID           `json:"id"`
	Type        Kind         `json:"type"`
	Points      []geom.Point `json:"points"`
	IsClosed    bool         `json:"isClosed"`
	Label       string       `json:"label"`
	Description string       `json:"description"`
}

type jsonArrow struct {
	ID          ID          `json:"id"`
	Type        Kind        `json:"type"`
	Start       geom.Point  `json:"start"`
	End         *geom.Point `json:"end"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
}

// jsonAny is used to read back either variant.
type jsonAny struct {
	ID          ID           `json:"id"`
	Type        Kind         `json:"type"`
	Points      []geom.Point `json:"points"`
	IsClosed    bool         `json:"isClosed"`
	Start       *geom.Point  `json:"start"`
	End         *geom.Point  `json:"end"`
	Label       string       `json:"label"`
	Description string       `json:"description"`
}

// ToJSON serializes the ordered annotations as a pretty-printed JSON array
// indented by two spaces. Equal input always yields identical bytes.
func ToJSON(items []Annotation) ([]byte, error) {
	out := make([]any, 0, len(items))
	for _, a := range items {
		switch v := a.(type) {
		case Polygon:
			pts := v.Points
			if pts == nil {
				pts = []geom.Point{}
			}
			out = append(out, jsonPolygon{
				ID:          v.ID,
				Type:        KindPolygon,
				Points:      pts,
				IsClosed:    v.Closed,
				Label:       v.Label,
				Description: v.Description,
			})
		case Arrow:
			out = append(out, jsonArrow{
				ID:          v.ID,
				Type:        KindArrow,
				Start:       v.Start,
				End:         v.End,
				Label:       v.Label,
				Description: v.Description,
			})
		default:
			return nil, fmt.Errorf("annotation: unexpected variant %T", a)
		}
	}

	// Labels are written as typed; no HTML escaping of <, > and &.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Export writes the JSON document for items to w.
func Export(w io.Writer, items []Annotation) error {
	data, err := ToJSON(items)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Parse reads an exported document.
func Parse(data []byte) ([]Annotation, error) {
	var raw []jsonAny
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	items := make([]Annotation, 0, len(raw))
	for i, r := range raw {
		switch r.Type {
		case KindPolygon:
			items = append(items, Polygon{
				ID:          r.ID,
				Points:      r.Points,
				Closed:      r.IsClosed,
				Label:       r.Label,
				Description: r.Description,
			})
		case KindArrow:
			if r.Start == nil {
				return nil, fmt.Errorf("annotation %d: arrow without start", i)
			}
			items = append(items, Arrow{
				ID:          r.ID,
				Start:       *r.Start,
				End:         r.End,
				Label:       r.Label,
				Description: r.Description,
			})
		default:
			return nil, fmt.Errorf("annotation %d: unknown type %q", i, r.Type)
		}
	}
	return items, nil
}

// Validate checks that items could have been produced by an editing
// session: unique ids, committed shapes only, coordinates on the image.
func Validate(items []Annotation) error {
	seen := make(map[ID]bool)
	for i, a := range items {
		id := a.AnnotationID()
		if seen[id] {
			return fmt.Errorf("annotation %d: duplicate id %d", i, id)
		}
		seen[id] = true

		switch v := a.(type) {
		case Polygon:
			if !v.Closed {
				return fmt.Errorf("annotation %d: polygon %d is not closed", i, id)
			}
			if len(v.Points) < MinVertices {
				return fmt.Errorf("annotation %d: polygon %d has %d vertices: %w", i, id, len(v.Points), ErrMinVertices)
			}
			for j, p := range v.Points {
				if !inRange(p) {
					return fmt.Errorf("annotation %d: vertex %d (%.2f, %.2f) outside image", i, j, p.X, p.Y)
				}
			}
		case Arrow:
			if !v.Placed() {
				return fmt.Errorf("annotation %d: arrow %d has no end", i, id)
			}
			if !inRange(v.Start) || !inRange(*v.End) {
				return fmt.Errorf("annotation %d: arrow %d endpoint outside image", i, id)
			}
		}
	}
	return nil
}

func inRange(p geom.Point) bool {
	return p.X >= 0 && p.X <= geom.Scale && p.Y >= 0 && p.Y <= geom.Scale
}
