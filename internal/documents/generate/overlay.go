package generate

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"unicode"

	"github.com/fogleman/gg"
	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/basicfont"
	"gopkg.in/yaml.v3"
)

// RenderDPI is the resolution page images are expected to be rasterized at.
// Field coordinates are pixels at this DPI, so they are only valid for the
// exact page images they were measured on.
const RenderDPI = 150

const mmPerInch = 25.4

var (
	ErrFormNotFound = errors.New("FORM_NOT_FOUND")
	// ErrFontMissing means a value needs glyphs the built-in ASCII face
	// lacks, e.g. Hebrew, and no TTF font is configured.
	ErrFontMissing = errors.New("FONT_MISSING")
)

// FormLayout places text on pre-rendered page images.
type FormLayout struct {
	Name  string       `yaml:"name"`
	Pages []PageLayout `yaml:"pages"`
}

type PageLayout struct {
	Image  string          `yaml:"image"`
	Fields []FieldPosition `yaml:"fields"`
}

type FieldPosition struct {
	Token string  `yaml:"token"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"` // baseline
	Size  float64 `yaml:"size"`
	Align string  `yaml:"align"` // left, center, right
}

// LoadLayout reads <dir>/<name>.yaml.
func LoadLayout(dir, name string) (*FormLayout, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("%w: %q", ErrFormNotFound, name)
	}
	raw, err := os.ReadFile(filepath.Join(dir, name+".yaml"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrFormNotFound, name)
		}
		return nil, fmt.Errorf("read layout: %w", err)
	}
	var layout FormLayout
	if err := yaml.Unmarshal(raw, &layout); err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", name, err)
	}
	if len(layout.Pages) == 0 {
		return nil, fmt.Errorf("layout %s has no pages", name)
	}
	return &layout, nil
}

// OverlayRenderer draws field values onto page images.
type OverlayRenderer struct {
	formsDir string
	fontPath string
}

func NewOverlayRenderer(formsDir, fontPath string) *OverlayRenderer {
	return &OverlayRenderer{formsDir: formsDir, fontPath: fontPath}
}

// RenderPages returns one PNG per layout page. value resolves a field token.
func (r *OverlayRenderer) RenderPages(layout *FormLayout, value func(token string) string) ([][]byte, error) {
	pages := make([][]byte, 0, len(layout.Pages))
	for i, page := range layout.Pages {
		img, err := gg.LoadImage(filepath.Join(r.formsDir, page.Image))
		if err != nil {
			return nil, fmt.Errorf("load page %d image: %w", i+1, err)
		}

		dc := gg.NewContextForImage(img)
		dc.SetRGB(0, 0, 0)

		for _, field := range page.Fields {
			text := value(field.Token)
			if text == "" {
				continue
			}
			if r.fontPath == "" && !isASCII(text) {
				return nil, fmt.Errorf("%w: field %q on page %d", ErrFontMissing, field.Token, i+1)
			}
			if err := r.setFont(dc, field.Size); err != nil {
				return nil, err
			}
			dc.DrawStringAnchored(visualOrder(text), field.X, field.Y, anchorX(field.Align), 0)
		}

		var buf bytes.Buffer
		if err := dc.EncodePNG(&buf); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		pages = append(pages, buf.Bytes())
	}
	return pages, nil
}

func (r *OverlayRenderer) setFont(dc *gg.Context, size float64) error {
	if r.fontPath == "" {
		dc.SetFontFace(basicfont.Face7x13)
		return nil
	}
	if size <= 0 {
		size = 12
	}
	if err := dc.LoadFontFace(r.fontPath, size); err != nil {
		return fmt.Errorf("load font %s: %w", r.fontPath, err)
	}
	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func anchorX(align string) float64 {
	switch align {
	case "center":
		return 0.5
	case "right":
		return 1
	default:
		return 0
	}
}

// visualOrder lays out right-to-left text for a renderer that only draws
// left to right: runs are emitted in reverse and Hebrew runs are reversed,
// while digits and Latin runs keep their order.
func visualOrder(s string) string {
	runes := []rune(s)
	hasRTL := false
	for _, r := range runes {
		if unicode.Is(unicode.Hebrew, r) {
			hasRTL = true
			break
		}
	}
	if !hasRTL {
		return s
	}

	var runs [][]rune
	var current []rune
	currentRTL := true
	for _, r := range runes {
		rtl := unicode.Is(unicode.Hebrew, r) || unicode.IsSpace(r) || unicode.IsPunct(r)
		if len(current) > 0 && rtl != currentRTL {
			runs = append(runs, current)
			current = nil
		}
		currentRTL = rtl
		current = append(current, r)
	}
	runs = append(runs, current)

	out := make([]rune, 0, len(runes))
	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		if isRTLRun(run) {
			for j := len(run) - 1; j >= 0; j-- {
				out = append(out, run[j])
			}
			continue
		}
		out = append(out, run...)
	}
	return string(out)
}

func isRTLRun(run []rune) bool {
	for _, r := range run {
		if !(unicode.Is(unicode.Hebrew, r) || unicode.IsSpace(r) || unicode.IsPunct(r)) {
			return false
		}
	}
	return true
}

// AssemblePDF places each PNG page on its own page, sized from RenderDPI.
func AssemblePDF(pages [][]byte) ([]byte, error) {
	if len(pages) == 0 {
		return nil, errors.New("no pages to assemble")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	for i, page := range pages {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(page))
		if err != nil {
			return nil, fmt.Errorf("decode page %d: %w", i+1, err)
		}
		w := float64(cfg.Width) / RenderDPI * mmPerInch
		h := float64(cfg.Height) / RenderDPI * mmPerInch

		// "P" keeps Wd/Ht as given; the page takes the image's own shape.
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})

		name := fmt.Sprintf("page-%d", i+1)
		pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(page))
		pdf.ImageOptions(name, 0, 0, w, h, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
	if pdf.Err() {
		return nil, fmt.Errorf("assemble pdf: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
