package contracts

// InputFlags holds the raw front-end values before validation. The yaml tags
// are the keys of the optional config file.
type InputFlags struct {
	Resize         string `yaml:"resize"`
	InputDir       string `yaml:"input"`
	OutputDir      string `yaml:"output"`
	Mode           string `yaml:"mode"`
	PNGCompression string `yaml:"png_compression"`
	ContactSheet   string `yaml:"contact_sheet"`
	LogLevel       string `yaml:"log_level"`
	Brightness     int    `yaml:"brightness"`
	Contrast       int    `yaml:"contrast"`
	Saturation     int    `yaml:"saturation"`
	Workers        int    `yaml:"workers"`
	KeepAlpha      bool   `yaml:"keep_alpha"`
	Sharpen        bool   `yaml:"sharpen"`
	Blur           bool   `yaml:"blur"`
	LogJSON        bool   `yaml:"log_json"`
}

// DefaultInputFlags mirrors DefaultOptions.
func DefaultInputFlags() InputFlags {
	return InputFlags{
		Mode:           "dds2png",
		PNGCompression: "lossless",
		LogLevel:       "info",
		Saturation:     100,
		Workers:        1,
		KeepAlpha:      true,
	}
}

// Request validates f and builds the immutable run request.
func (f InputFlags) Request() (ConversionRequest, error) {
	direction, err := ParseDirection(f.Mode)
	if err != nil {
		return ConversionRequest{}, err
	}
	compression, err := ParsePNGCompression(f.PNGCompression)
	if err != nil {
		return ConversionRequest{}, err
	}
	size, err := ParseSize(f.Resize)
	if err != nil {
		return ConversionRequest{}, err
	}
	req, err := NewConversionRequest(f.InputDir, f.OutputDir, direction, ConversionOptions{
		Resize:         size,
		Brightness:     f.Brightness,
		Contrast:       f.Contrast,
		Saturation:     f.Saturation,
		PNGCompression: compression,
		KeepAlpha:      f.KeepAlpha,
		Sharpen:        f.Sharpen,
		Blur:           f.Blur,
	})
	if err != nil {
		return ConversionRequest{}, err
	}
	return req.WithWorkers(f.Workers).WithContactSheet(f.ContactSheet), nil
}
