package media

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/PROCLCGIT/pandora-sub000/internal/apperror"
	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/audit"
	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/products"
)

// mediaSchema mirrors db/migrations in SQLite syntax.
const mediaSchema = `
CREATE TABLE imagenes_producto (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	producto_ofertado_id INTEGER NULL,
	producto_disponible_id INTEGER NULL,
	path_primary TEXT NOT NULL DEFAULT '',
	path_original TEXT NOT NULL DEFAULT '',
	path_thumbnail TEXT NOT NULL DEFAULT '',
	path_webp TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	alt_text TEXT NOT NULL DEFAULT '',
	description TEXT NULL,
	tags TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL DEFAULT 0,
	is_primary BOOLEAN NOT NULL DEFAULT FALSE,
	width INTEGER NOT NULL DEFAULT 0,
	height INTEGER NOT NULL DEFAULT 0,
	format TEXT NOT NULL DEFAULT '',
	file_size INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	created_by INTEGER NULL,
	CHECK ((producto_ofertado_id IS NULL) <> (producto_disponible_id IS NULL))
);
CREATE TABLE documentos_producto (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	producto_ofertado_id INTEGER NULL,
	producto_disponible_id INTEGER NULL,
	path TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	document_kind TEXT NOT NULL DEFAULT 'otros',
	description TEXT NULL,
	is_public BOOLEAN NOT NULL DEFAULT FALSE,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	created_by INTEGER NULL,
	CHECK ((producto_ofertado_id IS NULL) <> (producto_disponible_id IS NULL))
);`

func openMediaDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(mediaSchema)
	require.NoError(t, err)
	return db
}

// --- Mock Repositories ---

// mockProductRepo implements products.ProductRepository for testing.
type mockProductRepo struct {
	findFn func(ctx context.Context, ref products.Ref) (*products.Product, error)
}

func (m *mockProductRepo) Find(ctx context.Context, ref products.Ref) (*products.Product, error) {
	if m.findFn != nil {
		return m.findFn(ctx, ref)
	}
	return nil, apperror.NewNotFound("producto no encontrado")
}

// catalog returns a product repo holding the given products.
func catalog(ps ...products.Product) *mockProductRepo {
	return &mockProductRepo{findFn: func(_ context.Context, ref products.Ref) (*products.Product, error) {
		for _, p := range ps {
			if p.Ref == ref {
				p := p
				return &p, nil
			}
		}
		return nil, apperror.NewNotFound("producto no encontrado")
	}}
}

// recordingAudit implements audit.AuditService and keeps every entry.
type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordingAudit) Log(_ context.Context, e *audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *recordingAudit) ProductActivity(context.Context, products.Ref) (*audit.Feed, error) {
	return &audit.Feed{}, nil
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// --- Image Fixtures ---

// halves draws the left half in left and the right half in right.
func halves(w, h int, left, right color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, left)
			} else {
				img.Set(x, y, right)
			}
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testJPEG(t *testing.T, w, h int) []byte {
	return encodeJPEG(t, halves(w, h, colorRed, colorBlue))
}

// captureLogs routes the default slog logger into a buffer for the rest of
// the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// headerOnlyPNG returns a valid 1x1 PNG whose IHDR claims w x h. Only the
// header is consistent; decoding the pixel data would fail.
func headerOnlyPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := encodePNG(t, image.NewGray(image.Rect(0, 0, 1, 1)))
	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc
	require.Equal(t, "IHDR", string(data[12:16]))
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

// withOrientation splices an EXIF APP1 segment carrying the orientation tag
// right after the JPEG SOI marker.
func withOrientation(t *testing.T, jpg []byte, orientation uint16) []byte {
	t.Helper()
	require.True(t, len(jpg) > 2 && jpg[0] == 0xFF && jpg[1] == 0xD8, "not a JPEG")

	var tiff bytes.Buffer
	tiff.WriteString("MM")
	binary.Write(&tiff, binary.BigEndian, uint16(42))
	binary.Write(&tiff, binary.BigEndian, uint32(8)) // IFD0 offset
	binary.Write(&tiff, binary.BigEndian, uint16(1)) // entry count
	binary.Write(&tiff, binary.BigEndian, uint16(0x0112))
	binary.Write(&tiff, binary.BigEndian, uint16(3)) // SHORT
	binary.Write(&tiff, binary.BigEndian, uint32(1))
	binary.Write(&tiff, binary.BigEndian, orientation)
	binary.Write(&tiff, binary.BigEndian, uint16(0)) // padding
	binary.Write(&tiff, binary.BigEndian, uint32(0)) // next IFD

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	seg = append(seg, payload...)

	out := append([]byte{}, jpg[:2]...)
	out = append(out, seg...)
	return append(out, jpg[2:]...)
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func requireOpaque(t *testing.T, img image.Image) {
	t.Helper()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a != 0xffff {
				t.Fatalf("pixel (%d,%d) has alpha %d", x, y, a)
			}
		}
	}
}

var (
	colorRed  = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	colorBlue = color.RGBA{R: 30, G: 30, B: 200, A: 255}
)
