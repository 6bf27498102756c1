package output

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"ScheduledShot/compare"
	"ScheduledShot/failure"
)

// Corner はタイムスタンプを描く隅です。
type Corner string

const (
	TopLeft     Corner = "top-left"
	TopRight    Corner = "top-right"
	BottomLeft  Corner = "bottom-left"
	BottomRight Corner = "bottom-right"
)

// ParseCorner は設定値を Corner に変換します。空なら左上です。
func ParseCorner(s string) (Corner, error) {
	switch c := Corner(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return TopLeft, nil
	case TopLeft, TopRight, BottomLeft, BottomRight:
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown timestamp position %q", failure.ErrInvalidConfiguration, s)
}

const (
	timestampMargin = 10
	timestampLayout = "2006-01-02 15:04:05"
	defaultPrefix   = "screenshot"
	defaultFontSize = 14
)

// Options は1回の保存の指定です。
type Options struct {
	Dir            string
	Prefix         string
	Timestamp      bool
	Corner         Corner
	IncludeSeconds bool
}

// Saved は保存結果です。
type Saved struct {
	Path   string
	Digest string
	At     time.Time
}

// FinalizerOptions は Finalizer の設定です。
type FinalizerOptions struct {
	FontPath string
	FontSize float64
	Clock    func() time.Time
	Logger   *slog.Logger
}

// Finalizer はタイムスタンプを重ねて PNG で保存します。
type Finalizer struct {
	face   font.Face
	clock  func() time.Time
	logger *slog.Logger
}

// NewFinalizer は Finalizer を作成します。フォントを読めなければ組み込みフォントを使います。
func NewFinalizer(opts FinalizerOptions) *Finalizer {
	f := &Finalizer{clock: opts.Clock, logger: opts.Logger}
	if f.clock == nil {
		f.clock = time.Now
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	f.face = basicfont.Face7x13
	if opts.FontPath != "" {
		size := opts.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		face, err := LoadFace(opts.FontPath, size)
		if err != nil {
			f.logger.Warn("フォントを読み込めませんでした。組み込みフォントを使います", "path", opts.FontPath, "error", err)
		} else {
			f.face = face
		}
	}
	return f
}

// DefaultFontPath は Windows 標準の Arial のパスを返します。
func DefaultFontPath() string {
	dir := os.Getenv("WINDIR")
	if dir == "" {
		dir = `C:\Windows`
	}
	return filepath.Join(dir, "Fonts", "arial.ttf")
}

// LoadFace は TrueType / OpenType フォントファイルを読み込みます。
func LoadFace(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fnt, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return opentype.NewFace(fnt, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// Finalize は必要ならタイムスタンプを描き、opts.Dir に PNG で保存します。
// 書き込みに失敗した場合は中途半端なファイルを残さず failure.ErrIOFailure を返します。
func (f *Finalizer) Finalize(img image.Image, opts Options) (Saved, error) {
	if opts.Dir == "" {
		return Saved{}, fmt.Errorf("%w: output directory is empty", failure.ErrInvalidConfiguration)
	}
	now := f.clock()

	if opts.Timestamp {
		rgba := cloneRGBA(img)
		drawTimestamp(rgba, f.face, now.Format(timestampLayout), opts.Corner)
		img = rgba
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return Saved{}, fmt.Errorf("%w: create %s: %v", failure.ErrIOFailure, opts.Dir, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Saved{}, fmt.Errorf("%w: encode png: %v", failure.ErrIOFailure, err)
	}

	path := filepath.Join(opts.Dir, FileName(opts.Prefix, now, opts.IncludeSeconds))
	digest := compare.Digest(buf.Bytes())
	if err := writeFileAtomic(path, buf.Bytes(), digest); err != nil {
		return Saved{}, fmt.Errorf("%w: %v", failure.ErrIOFailure, err)
	}
	f.logger.Info("スクリーンショットを保存しました", "path", path)
	return Saved{Path: path, Digest: compare.Hex(digest), At: now}, nil
}

// FileName は <prefix>_YYYY_MM_DD_HH-MM[-SS].png を返します。
func FileName(prefix string, t time.Time, seconds bool) string {
	prefix = sanitizeFileName(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	layout := "2006_01_02_15-04"
	if seconds {
		layout += "-05"
	}
	return prefix + "_" + t.Format(layout) + ".png"
}

// writeFileAtomic は同じフォルダの一時ファイルに書いてから名前を変え、内容を読み直して確認します。
func writeFileAtomic(path string, data, digest []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	got, err := compare.HashFile(path)
	if err != nil || !compare.Same(got, digest) {
		os.Remove(path)
		if err == nil {
			err = fmt.Errorf("written file %s does not match encoded image", path)
		}
		return err
	}
	return nil
}

// cloneRGBA は img を原点 (0,0) の新しい RGBA にコピーします。呼び出し元の画像には描き込まない。
func cloneRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// anchorOrigin は文字列ブロックの左上座標を返します。右・下寄せは画像とテキストの実寸から計算します。
func anchorOrigin(imgSize, textSize image.Point, corner Corner, margin int) image.Point {
	p := image.Pt(margin, margin)
	if corner == TopRight || corner == BottomRight {
		p.X = imgSize.X - textSize.X - margin
	}
	if corner == BottomLeft || corner == BottomRight {
		p.Y = imgSize.Y - textSize.Y - margin
	}
	return p
}

func drawTimestamp(dst *image.RGBA, face font.Face, text string, corner Corner) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(color.White), Face: face}
	metrics := face.Metrics()
	size := image.Pt(d.MeasureString(text).Ceil(), (metrics.Ascent + metrics.Descent).Ceil())
	origin := anchorOrigin(dst.Bounds().Size(), size, corner, timestampMargin).Add(dst.Bounds().Min)
	d.Dot = fixed.P(origin.X, origin.Y+metrics.Ascent.Ceil())
	d.DrawString(text)
}

// sanitizeFileName は Windows のファイル名に使えない文字を除去します。
func sanitizeFileName(name string) string {
	const invalid = `\/:*?"<>|`
	s := strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range s {
		if !strings.ContainsRune(invalid, r) && r >= 0x20 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
