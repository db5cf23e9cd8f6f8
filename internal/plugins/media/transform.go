package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	// Register decoders for every accepted container.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"

	"github.com/PROCLCGIT/pandora-sub000/internal/config"
)

// Derivative is one encoded artifact produced from an upload.
type Derivative struct {
	Ext    string
	Data   []byte
	Width  int
	Height int
}

// Derivatives is the transformer's output for one image. Original is nil
// when originals are not preserved.
type Derivatives struct {
	// Format is the decoder's format name, upper-cased (JPEG, PNG, GIF, WEBP).
	Format string

	// Width and Height are the oriented source dimensions.
	Width  int
	Height int

	// FileSize is the byte length of the original derivative, or of the
	// upload when the original is discarded.
	FileSize int64

	Original  *Derivative
	Thumbnail *Derivative
	WebP      *Derivative
}

// ErrTooManyPixels is returned when the image header declares a frame
// larger than the configured pixel budget.
var ErrTooManyPixels = errors.New("image dimensions exceed pixel budget")

// Transformer turns an uploaded image into its derivatives.
type Transformer struct {
	sizes            config.ImageSizes
	quality          config.ImageQuality
	preserveOriginal bool
	maxPixels        int64
}

// NewTransformer creates a transformer from the media config.
func NewTransformer(cfg config.MediaConfig) *Transformer {
	return &Transformer{
		sizes:            cfg.Sizes,
		quality:          cfg.Quality,
		preserveOriginal: cfg.PreserveOriginal,
		maxPixels:        cfg.MaxImagePixels,
	}
}

// Transform decodes data, flattens transparency onto white, applies the EXIF
// orientation, and encodes the derivatives. Nothing touches the disk here.
func (t *Transformer) Transform(data []byte) (*Derivatives, error) {
	hdr, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading image header: %w", err)
	}
	if t.maxPixels > 0 && int64(hdr.Width)*int64(hdr.Height) > t.maxPixels {
		return nil, fmt.Errorf("%dx%d: %w", hdr.Width, hdr.Height, ErrTooManyPixels)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img := flatten(src)
	img = orient(img, exifOrientation(data))

	bounds := img.Bounds()
	out := &Derivatives{
		Format:   strings.ToUpper(format),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		FileSize: int64(len(data)),
	}

	if t.preserveOriginal {
		orig, err := t.encodeOriginal(img, format)
		if err != nil {
			return nil, err
		}
		out.Original = orig
		out.FileSize = int64(len(orig.Data))
	}

	thumb := fit(img, t.sizes.Thumbnail)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(t.quality.Thumbnail)); err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	out.Thumbnail = newDerivative("jpg", buf.Bytes(), thumb)

	web := fit(img, t.sizes.WebP)
	buf = bytes.Buffer{}
	if err := webp.Encode(&buf, web, webp.Options{Quality: t.quality.WebP, Method: 6}); err != nil {
		return nil, fmt.Errorf("encoding webp: %w", err)
	}
	out.WebP = newDerivative("webp", buf.Bytes(), web)

	return out, nil
}

// encodeOriginal re-encodes the normalized image in its source container at
// the archival quality.
func (t *Transformer) encodeOriginal(img image.Image, format string) (*Derivative, error) {
	img = fit(img, t.sizes.Original)

	var buf bytes.Buffer
	var err error
	ext := format
	switch format {
	case "jpeg":
		ext = "jpg"
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(t.quality.Original))
	case "png":
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case "gif":
		err = imaging.Encode(&buf, img, imaging.GIF, imaging.GIFNumColors(256))
	case "webp":
		err = webp.Encode(&buf, img, webp.Options{
			Quality:  t.quality.Original,
			Lossless: t.quality.Original >= 100,
			Method:   6,
		})
	default:
		return nil, fmt.Errorf("encoding original: unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding original: %w", err)
	}
	return newDerivative(ext, buf.Bytes(), img), nil
}

func newDerivative(ext string, data []byte, img image.Image) *Derivative {
	b := img.Bounds()
	return &Derivative{Ext: ext, Data: data, Width: b.Dx(), Height: b.Dy()}
}

// fit resizes img to fit inside box with Lanczos resampling. Images already
// inside the box, and zero boxes, are returned unchanged (never upscaled).
func fit(img image.Image, box config.Size) image.Image {
	if box.IsZero() {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= box.Width && b.Dy() <= box.Height {
		return img
	}
	return imaging.Fit(img, box.Width, box.Height, imaging.Lanczos)
}

// hasAlpha reports whether the decoded image carries an alpha channel or a
// palette (which may hold transparent entries).
func hasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.Paletted, *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64,
		*image.Alpha, *image.Alpha16, *image.NYCbCrA:
		return true
	}
	return false
}

// flatten composites images with alpha or a palette over an opaque white
// background. JPEG and lossy WebP output cannot carry the alpha channel.
func flatten(img image.Image) image.Image {
	if !hasAlpha(img) {
		return img
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// exifOrientation reads the EXIF orientation tag. Missing or unreadable EXIF
// yields 1 (no transform).
func exifOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// orient transposes pixels so they match the display intent of the EXIF
// orientation value.
func orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}
