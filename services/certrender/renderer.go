// Package certrender draws certificate artwork as PNG images.
package certrender

import (
	"bytes"
	"context"
	"image"
	"image/color"
	_ "image/jpeg" // artwork decoders
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/certificate"
)

const (
	// A4 portrait at 150 dpi
	pageWidth  = 1240
	pageHeight = 1754
	cm         = 150 / 2.54

	contentType = "image/png"
)

type renderer struct {
	mediaRoot string
	size      float64
	logger    core.Logger

	bold, regular, italic *truetype.Font
}

var _ certificate.Renderer = (*renderer)(nil) // interface compliance check

// NewRenderer returns a certificate.Renderer drawing with the Go fonts.
// The title is set in conf.Certificate.FontSize points, the other lines are proportionally smaller.
func NewRenderer(conf *core.Config, logger core.Logger) (certificate.Renderer, error) {
	size := conf.Certificate.FontSize
	if size <= 0 {
		size = 42
	}

	r := &renderer{mediaRoot: conf.Certificate.MediaRoot, size: size, logger: logger}
	var err error
	if r.bold, err = truetype.Parse(gobold.TTF); err != nil {
		return nil, errors.Wrap(err, "parsing bold font")
	}
	if r.regular, err = truetype.Parse(goregular.TTF); err != nil {
		return nil, errors.Wrap(err, "parsing regular font")
	}
	if r.italic, err = truetype.Parse(goitalic.TTF); err != nil {
		return nil, errors.Wrap(err, "parsing italic font")
	}
	return r, nil
}

// faces holds the font faces of a single rendering.
// A truetype face caches glyphs and must not be shared between goroutines.
type faces struct {
	title, body, program, footer font.Face
}

func (r *renderer) newFaces() faces {
	return faces{
		title:   truetype.NewFace(r.bold, &truetype.Options{Size: r.size}),
		body:    truetype.NewFace(r.regular, &truetype.Options{Size: r.size * 16 / 24}),
		program: truetype.NewFace(r.italic, &truetype.Options{Size: r.size * 14 / 24}),
		footer:  truetype.NewFace(r.regular, &truetype.Options{Size: r.size * 12 / 24}),
	}
}

// Render draws the certificate over the program artwork, or over a blank page when the
// program has none or it cannot be read. Names are transliterated to Latin.
func (r *renderer) Render(ctx context.Context, data certificate.RenderData) (certificate.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return certificate.Artifact{}, err
	}

	data.Username = Transliterate(data.Username)
	data.FullName = Transliterate(data.FullName)
	data.ProgramName = Transliterate(data.ProgramName)

	dc := gg.NewContext(pageWidth, pageHeight)
	dc.SetColor(color.White)
	dc.Clear()
	if bg := r.loadArtwork(data.CertificateImage); bg != nil {
		dc.DrawImage(bg, 0, 0)
	}

	cx := float64(pageWidth) / 2
	dc.SetColor(color.Black)
	ff := r.newFaces()

	dc.SetFontFace(ff.title)
	dc.DrawStringAnchored("CERTIFICATE", cx, 4*cm, 0.5, 0.5)

	dc.SetFontFace(ff.body)
	dc.DrawStringAnchored("User: "+data.Username, cx, 6*cm, 0.5, 0.5)
	if data.FullName != "" && data.FullName != data.Username {
		dc.SetFontFace(ff.footer)
		dc.DrawStringAnchored(data.FullName, cx, 7*cm, 0.5, 0.5)
	}

	dc.SetFontFace(ff.program)
	dc.DrawStringWrapped(
		"For completed the program: "+data.ProgramName,
		cx, 8*cm, 0.5, 0, float64(pageWidth)-4*cm, 1.5, gg.AlignCenter,
	)

	dc.SetFontFace(ff.footer)
	dc.DrawStringAnchored("Congratulate!", cx, float64(pageHeight)-3*cm, 0.5, 0.5)
	if !data.IssuedAt.IsZero() {
		dc.DrawStringAnchored(data.IssuedAt.Format("02.01.2006"), cx, float64(pageHeight)-2*cm, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return certificate.Artifact{}, errors.Wrap(err, "encoding png")
	}
	return certificate.Artifact{
		Filename:    data.Filename("png"),
		ContentType: contentType,
		Content:     buf.Bytes(),
	}, nil
}

// loadArtwork returns the artwork scaled to the page, or nil.
func (r *renderer) loadArtwork(ref string) image.Image {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	// artwork references are relative to the media root
	fp := filepath.Join(r.mediaRoot, filepath.Clean("/"+ref))
	f, err := os.Open(fp)
	if err != nil {
		r.logger.Warn("certrender: opening artwork", err, map[string]interface{}{"path": fp})
		return nil
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		r.logger.Warn("certrender: decoding artwork", err, map[string]interface{}{"path": fp})
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, pageWidth, pageHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
