package media

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PROCLCGIT/pandora-sub000/internal/config"
)

func newTestTransformer() *Transformer {
	return NewTransformer(config.DefaultMedia())
}

func TestTransform_JPEGDerivatives(t *testing.T) {
	out, err := newTestTransformer().Transform(testJPEG(t, 1024, 768))
	require.NoError(t, err)

	assert.Equal(t, "JPEG", out.Format)
	assert.Equal(t, 1024, out.Width)
	assert.Equal(t, 768, out.Height)

	require.NotNil(t, out.Original)
	assert.Equal(t, "jpg", out.Original.Ext)
	assert.Equal(t, 1024, out.Original.Width)
	assert.Equal(t, int64(len(out.Original.Data)), out.FileSize)

	thumb := decode(t, out.Thumbnail.Data)
	assert.Equal(t, 150, thumb.Bounds().Dx())
	assert.InDelta(t, 112.5, thumb.Bounds().Dy(), 0.5)
	assert.Equal(t, "jpg", out.Thumbnail.Ext)

	web := decode(t, out.WebP.Data)
	assert.InDelta(t, 800, web.Bounds().Dx(), 1)
	assert.Equal(t, 600, web.Bounds().Dy())
	assert.Equal(t, "webp", out.WebP.Ext)
}

func TestTransform_SmallImageIsNotUpscaled(t *testing.T) {
	out, err := newTestTransformer().Transform(testJPEG(t, 120, 80))
	require.NoError(t, err)

	web := decode(t, out.WebP.Data)
	assert.Equal(t, 120, web.Bounds().Dx())
	assert.Equal(t, 80, web.Bounds().Dy())

	thumb := decode(t, out.Thumbnail.Data)
	assert.Equal(t, 120, thumb.Bounds().Dx())
	assert.Equal(t, 80, thumb.Bounds().Dy())
}

func TestTransform_AlphaIsFlattenedOntoWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1000, 500))
	// Fully transparent except an opaque black square in the corner.
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			src.Set(x, y, color.NRGBA{A: 255})
		}
	}

	out, err := newTestTransformer().Transform(encodePNG(t, src))
	require.NoError(t, err)
	assert.Equal(t, "PNG", out.Format)
	assert.Equal(t, "png", out.Original.Ext)

	for _, d := range []*Derivative{out.Original, out.Thumbnail, out.WebP} {
		img := decode(t, d.Data)
		requireOpaque(t, img)

		// The WebP encoder stores limited-range YCbCr, so its white reads
		// back as 235 per channel.
		floor := uint32(236)
		if d.Ext == "webp" {
			floor = 230
		}
		b := img.Bounds()
		r, g, bl, _ := img.At(b.Max.X-2, b.Max.Y-2).RGBA()
		assert.GreaterOrEqual(t, r>>8, floor, "%s background should be white", d.Ext)
		assert.GreaterOrEqual(t, g>>8, floor, d.Ext)
		assert.GreaterOrEqual(t, bl>>8, floor, d.Ext)
	}

	web := decode(t, out.WebP.Data)
	assert.LessOrEqual(t, web.Bounds().Dx(), 800)
	assert.LessOrEqual(t, web.Bounds().Dy(), 600)
	thumb := decode(t, out.Thumbnail.Data)
	assert.LessOrEqual(t, thumb.Bounds().Dx(), 150)
	assert.LessOrEqual(t, thumb.Bounds().Dy(), 150)
}

func TestTransform_PalettedTransparency(t *testing.T) {
	pal := color.Palette{color.NRGBA{}, color.NRGBA{R: 255, A: 255}}
	src := image.NewPaletted(image.Rect(0, 0, 64, 64), pal)
	for y := 0; y < 64; y++ {
		for x := 0; x < 32; x++ {
			src.SetColorIndex(x, y, 1)
		}
	}

	out, err := newTestTransformer().Transform(encodePNG(t, src))
	require.NoError(t, err)

	thumb := decode(t, out.Thumbnail.Data)
	requireOpaque(t, thumb)
	r, g, b, _ := thumb.At(60, 32).RGBA()
	assert.Greater(t, r>>8, uint32(235))
	assert.Greater(t, g>>8, uint32(235))
	assert.Greater(t, b>>8, uint32(235))

	r, g, _, _ = thumb.At(4, 32).RGBA()
	assert.Greater(t, r>>8, uint32(200), "opaque half keeps its color")
	assert.Less(t, g>>8, uint32(60))
}

func TestTransform_AppliesEXIFOrientation(t *testing.T) {
	// Red on the left, blue on the right; orientation 6 asks for a 90°
	// clockwise turn, which puts red on top.
	src := withOrientation(t, testJPEG(t, 40, 20), 6)

	out, err := newTestTransformer().Transform(src)
	require.NoError(t, err)
	assert.Equal(t, 20, out.Width)
	assert.Equal(t, 40, out.Height)

	for _, d := range []*Derivative{out.Original, out.Thumbnail, out.WebP} {
		img := decode(t, d.Data)
		require.Equal(t, 20, img.Bounds().Dx(), d.Ext)
		require.Equal(t, 40, img.Bounds().Dy(), d.Ext)

		r, _, b, _ := img.At(10, 5).RGBA()
		assert.Greater(t, r>>8, b>>8, "%s: top should be red", d.Ext)
		r, _, b, _ = img.At(10, 35).RGBA()
		assert.Greater(t, b>>8, r>>8, "%s: bottom should be blue", d.Ext)
	}
}

func TestTransform_WithoutOriginal(t *testing.T) {
	cfg := config.DefaultMedia()
	cfg.PreserveOriginal = false
	data := testJPEG(t, 300, 200)

	out, err := NewTransformer(cfg).Transform(data)
	require.NoError(t, err)
	assert.Nil(t, out.Original)
	assert.Equal(t, int64(len(data)), out.FileSize)
	assert.NotNil(t, out.Thumbnail)
	assert.NotNil(t, out.WebP)
}

func TestTransform_UndecodableInput(t *testing.T) {
	_, err := newTestTransformer().Transform([]byte("\x89PNG\r\n\x1a\nbroken"))
	require.Error(t, err)
}

func TestTransform_RejectsOversizedFrameBeforeDecode(t *testing.T) {
	data := headerOnlyPNG(t, 30000, 30000)
	require.Less(t, len(data), 100)

	_, err := newTestTransformer().Transform(data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyPixels))
}

func TestTransform_PixelBudgetIsConfigurable(t *testing.T) {
	cfg := config.DefaultMedia()
	cfg.MaxImagePixels = 32 * 32

	_, err := NewTransformer(cfg).Transform(testJPEG(t, 32, 32))
	require.NoError(t, err)

	_, err = NewTransformer(cfg).Transform(testJPEG(t, 33, 32))
	assert.True(t, errors.Is(err, ErrTooManyPixels))
}

func TestExifOrientation_MissingTag(t *testing.T) {
	assert.Equal(t, 1, exifOrientation(testJPEG(t, 10, 10)))
	assert.Equal(t, 8, exifOrientation(withOrientation(t, testJPEG(t, 10, 10), 8)))
}
