package contracts

import (
	"context"
	"fmt"
	"strings"
)

type Converter interface {
	Run(ctx context.Context, request ConversionRequest) (*RunSummary, error)
}

type Direction int

const (
	DDSToPNG Direction = iota
	PNGToDDS
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dds2png", "dds-to-png":
		return DDSToPNG, nil
	case "png2dds", "png-to-dds":
		return PNGToDDS, nil
	}
	return 0, New(KindValidation, "parse direction", fmt.Sprintf("unknown mode %q, want dds2png or png2dds", s))
}

func (d Direction) String() string {
	switch d {
	case DDSToPNG:
		return "dds2png"
	case PNGToDDS:
		return "png2dds"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// SourceExt is the extension of the files a run consumes.
func (d Direction) SourceExt() Ext {
	if d == PNGToDDS {
		return ExtPNG
	}
	return ExtDDS
}

// TargetExt is the extension of the files a run produces.
func (d Direction) TargetExt() Ext {
	if d == PNGToDDS {
		return ExtDDS
	}
	return ExtPNG
}

// PNGCompression selects the PNG encoder effort. Both values are lossless.
type PNGCompression int

const (
	Lossless PNGCompression = iota
	Lossy
)

func ParsePNGCompression(s string) (PNGCompression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lossless":
		return Lossless, nil
	case "lossy":
		return Lossy, nil
	}
	return 0, New(KindValidation, "parse png compression", fmt.Sprintf("unknown png compression %q, want lossless or lossy", s))
}

func (c PNGCompression) String() string {
	if c == Lossy {
		return "lossy"
	}
	return "lossless"
}

type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ParseSize reads "WxH". An empty string means no resize.
func ParseSize(s string) (*Size, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var size Size
	if _, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &size.Width, &size.Height); err != nil {
		return nil, Wrap(KindValidation, "parse size", fmt.Sprintf("resize must look like 256x256, got %q", s), err)
	}
	return &size, nil
}

type ConversionOptions struct {
	Resize         *Size
	Brightness     int
	Contrast       int
	Saturation     int
	PNGCompression PNGCompression
	KeepAlpha      bool
	Sharpen        bool
	Blur           bool
}

// DefaultOptions leaves pixels untouched.
func DefaultOptions() ConversionOptions {
	return ConversionOptions{
		KeepAlpha:  true,
		Saturation: 100,
	}
}

// ResizeEnabled reports whether a resize step applies.
func (o ConversionOptions) ResizeEnabled() bool {
	return o.Resize != nil && o.Resize.Width > 0 && o.Resize.Height > 0
}

func (o ConversionOptions) Validate() error {
	if o.Brightness < -100 || o.Brightness > 100 {
		return New(KindValidation, "validate options", fmt.Sprintf("brightness %d out of range [-100, 100]", o.Brightness))
	}
	if o.Contrast < -100 || o.Contrast > 100 {
		return New(KindValidation, "validate options", fmt.Sprintf("contrast %d out of range [-100, 100]", o.Contrast))
	}
	if o.Saturation < 0 || o.Saturation > 200 {
		return New(KindValidation, "validate options", fmt.Sprintf("saturation %d out of range [0, 200]", o.Saturation))
	}
	if o.Resize != nil && (o.Resize.Width < 0 || o.Resize.Height < 0) {
		return New(KindValidation, "validate options", fmt.Sprintf("resize %dx%d must not be negative", o.Resize.Width, o.Resize.Height))
	}
	return nil
}

// ConversionRequest is built once per run by NewConversionRequest and not
// modified afterwards.
type ConversionRequest struct {
	Options      ConversionOptions
	SourceDir    string
	OutputDir    string
	ContactSheet string
	Direction    Direction
	Workers      int
}

func NewConversionRequest(sourceDir, outputDir string, direction Direction, options ConversionOptions) (ConversionRequest, error) {
	if strings.TrimSpace(sourceDir) == "" || strings.TrimSpace(outputDir) == "" {
		return ConversionRequest{}, New(KindValidation, "new request", fmt.Sprintf("please select the %s and output %s directories", direction.SourceExt().Label(), direction.TargetExt().Label()))
	}
	if direction != DDSToPNG && direction != PNGToDDS {
		return ConversionRequest{}, New(KindValidation, "new request", fmt.Sprintf("unknown direction %v", direction))
	}
	if err := options.Validate(); err != nil {
		return ConversionRequest{}, err
	}
	return ConversionRequest{
		Options:   options,
		SourceDir: sourceDir,
		OutputDir: outputDir,
		Direction: direction,
		Workers:   1,
	}, nil
}

// WithWorkers returns a copy of r with bounded parallelism n (n < 1 means 1).
func (r ConversionRequest) WithWorkers(n int) ConversionRequest {
	r.Workers = max(n, 1)
	return r
}

// WithContactSheet returns a copy of r that also writes a PDF preview of the
// PNG side of the batch to path.
func (r ConversionRequest) WithContactSheet(path string) ConversionRequest {
	r.ContactSheet = path
	return r
}

type RunSummary struct {
	Outputs   []string
	Direction Direction
}
