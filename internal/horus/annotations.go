package horus

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

type AnnotationType string

const (
	AnnotationRectangle AnnotationType = "rectangle"
	AnnotationCircle    AnnotationType = "circle"
	AnnotationArrow     AnnotationType = "arrow"
	AnnotationText      AnnotationType = "text"
	AnnotationFreehand  AnnotationType = "freehand"
)

// requiredCoordinates lists the coordinate keys each vector shape needs.
var requiredCoordinates = map[AnnotationType][]string{
	AnnotationRectangle: {"x", "y", "width", "height"},
	AnnotationCircle:    {"center_x", "center_y", "radius"},
	AnnotationArrow:     {"start_x", "start_y", "end_x", "end_y"},
	AnnotationText:      {"x", "y", "text"},
	AnnotationFreehand:  {},
}

type AnnotationStyle struct {
	Color     string  `json:"color"`
	LineWidth float64 `json:"line_width"`
	Opacity   float64 `json:"opacity"`
}

// DefaultAnnotationStyle is applied when a caller leaves the style empty.
var DefaultAnnotationStyle = AnnotationStyle{Color: "#ff0000", LineWidth: 2, Opacity: 1}

// Annotation is a drawing on one frame of a media file. Vector shapes keep
// their coordinates inline; freehand drawings point at a PNG through
// ImagePath. LinkedCommentID is a lookup hint only, the comment does not own
// the annotation.
type Annotation struct {
	ID              string          `json:"id"`
	MediaFile       string          `json:"media_file"`
	FrameNumber     int             `json:"frame_number"`
	Type            AnnotationType  `json:"annotation_type"`
	Coordinates     map[string]any  `json:"coordinates"`
	Style           AnnotationStyle `json:"style"`
	ImagePath       *string         `json:"image_path"`
	LinkedCommentID *string         `json:"linked_comment_id"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       Timestamp       `json:"created_at,omitzero"`
}

// NewAnnotation carries the caller-supplied fields of an annotation.
type NewAnnotation struct {
	MediaFile       string
	FrameNumber     int
	Type            AnnotationType
	Coordinates     map[string]any
	Style           *AnnotationStyle
	ImagePath       string
	LinkedCommentID string
	CreatedBy       string
}

func (in NewAnnotation) validate() error {
	required, ok := requiredCoordinates[in.Type]
	if !ok {
		return fmt.Errorf("%w: unknown annotation type %q", ErrInvalidArgument, in.Type)
	}
	for _, k := range required {
		if _, ok := in.Coordinates[k]; !ok {
			return fmt.Errorf("%w: %s annotation needs coordinate %q", ErrInvalidArgument, in.Type, k)
		}
	}
	if in.Type == AnnotationFreehand && in.ImagePath == "" {
		return fmt.Errorf("%w: freehand annotation needs an image path", ErrInvalidArgument)
	}
	if in.FrameNumber < 0 {
		return fmt.Errorf("%w: negative frame %d", ErrInvalidArgument, in.FrameNumber)
	}
	return nil
}

// AddAnnotation records a new annotation in the shot's comment document.
func (s *CommentStore) AddAnnotation(shot ShotInfo, in NewAnnotation) (*Annotation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	a := &Annotation{
		ID:          s.ids.New(),
		MediaFile:   in.MediaFile,
		FrameNumber: in.FrameNumber,
		Type:        in.Type,
		Coordinates: in.Coordinates,
		Style:       DefaultAnnotationStyle,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   NewTimestamp(s.clock.Now()),
	}
	if a.Coordinates == nil {
		a.Coordinates = map[string]any{}
	}
	if in.Style != nil {
		a.Style = *in.Style
	}
	if in.ImagePath != "" {
		p := in.ImagePath
		a.ImagePath = &p
	}
	if in.LinkedCommentID != "" {
		id := in.LinkedCommentID
		a.LinkedCommentID = &id
	}

	err := s.update(shot, func(doc *CommentDocument) error {
		doc.Annotations = append(doc.Annotations, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("annotation added", "shot", shot.Shot, "id", a.ID, "type", string(a.Type))
	return a, nil
}

// DeleteAnnotation removes an annotation record. A freehand PNG is left in
// place.
func (s *CommentStore) DeleteAnnotation(shot ShotInfo, id string) error {
	return s.update(shot, func(doc *CommentDocument) error {
		for i, a := range doc.Annotations {
			if a.ID == id {
				doc.Annotations = append(doc.Annotations[:i:i], doc.Annotations[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: annotation %s", ErrNotFound, id)
	})
}

// AnnotationsFor returns the annotations that point at a comment.
func (s *CommentStore) AnnotationsFor(shot ShotInfo, commentID string) ([]*Annotation, error) {
	doc, err := s.Load(shot)
	if err != nil {
		return nil, err
	}
	out := []*Annotation{}
	for _, a := range doc.Annotations {
		if a.LinkedCommentID != nil && *a.LinkedCommentID == commentID {
			out = append(out, a)
		}
	}
	return out, nil
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// SaveAnnotationImage stores a freehand drawing for one frame of a version
// and records a freehand annotation pointing at it.
func (s *CommentStore) SaveAnnotationImage(shot ShotInfo, department, version string, frame int, png []byte, in NewAnnotation) (*Annotation, error) {
	if !bytes.HasPrefix(png, pngSignature) {
		return nil, fmt.Errorf("%w: annotation image is not a PNG", ErrInvalidArgument)
	}
	p, err := s.fs.provider()
	if err != nil {
		return nil, err
	}

	imagePath := AnnotationFile(shot.Episode, shot.Sequence, shot.Shot, department, version, frame)
	if err := p.WriteFile(imagePath, png); err != nil {
		return nil, fmt.Errorf("writing annotation image %s: %w", imagePath, err)
	}

	in.Type = AnnotationFreehand
	in.FrameNumber = frame
	in.ImagePath = imagePath
	if in.MediaFile == "" {
		in.MediaFile = MediaFileName(shot.Shot, department, version)
	}
	return s.AddAnnotation(shot, in)
}

// AnnotationImage is a stored freehand drawing.
type AnnotationImage struct {
	Frame int
	Path  string
}

// ListAnnotationImages lists the freehand drawings saved for a version,
// ordered by frame.
func (s *CommentStore) ListAnnotationImages(shot ShotInfo, department, version string) ([]AnnotationImage, error) {
	p, err := s.fs.provider()
	if err != nil {
		return nil, err
	}
	dir := AnnotationDir(shot.Episode, shot.Sequence, shot.Shot, department, version)
	entries, err := p.ListDirectory(dir)
	if errors.Is(err, ErrNotFound) {
		return []AnnotationImage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	images := []AnnotationImage{}
	for _, e := range entries {
		if e.IsDir || !strings.EqualFold(path.Ext(e.Name), ".png") {
			continue
		}
		frame, ok := ParseFrame(e.Name)
		if !ok {
			continue
		}
		images = append(images, AnnotationImage{Frame: frame, Path: path.Join(dir, e.Name)})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Frame < images[j].Frame })
	return images, nil
}
