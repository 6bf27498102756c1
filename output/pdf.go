package output

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"ScheduledShot/failure"
)

// 96 DPI を基準にピクセルを mm に変換する
const pixelsPerInch = 96
const mmPerInch = 25.4

func pixelsToMm(pixels int) float64 {
	return float64(pixels) * mmPerInch / pixelsPerInch
}

// imageType は gofpdf に渡す画像形式です。対象外なら空文字を返します。
func imageType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "PNG"
	case ".jpg", ".jpeg":
		return "JPEG"
	}
	return ""
}

// ImagesToPDF は dir 内の PNG / JPEG をファイル名順で1つの PDF に結合し、outPath に保存します。
// ページは画像ごとに画像の大きさに合わせます。結合した枚数を返します。
// title はPDFのメタデータタイトルです。
func ImagesToPDF(dir, outPath, title string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", failure.ErrIOFailure, err)
	}
	var images []string
	for _, e := range entries {
		if e.IsDir() || imageType(e.Name()) == "" {
			continue
		}
		images = append(images, filepath.Join(dir, e.Name()))
	}
	if len(images) == 0 {
		return 0, nil
	}
	sort.Strings(images)

	pdf := gofpdf.New("P", "mm", "A4", "")
	if title != "" {
		pdf.SetTitle(title, true) // true = UTF-8（日本語対応）
	}
	count := 0
	for _, path := range images {
		w, h, err := imageSize(path)
		if err != nil {
			continue // 壊れたファイルや空ファイルは飛ばす
		}
		wMm, hMm := pixelsToMm(w), pixelsToMm(h)
		// "L" は幅と高さを入れ替えるので、実寸を渡すときは常に "P"
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: wMm, Ht: hMm})
		opt := gofpdf.ImageOptions{ImageType: imageType(path)}
		pdf.ImageOptions(path, 0, 0, wMm, hMm, false, opt, 0, "")
		count++
	}
	if count == 0 {
		return 0, nil
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return 0, fmt.Errorf("%w: write %s: %v", failure.ErrIOFailure, outPath, err)
	}
	return count, nil
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("%s: empty image", path)
	}
	return cfg.Width, cfg.Height, nil
}

// PDFFileName はPDFタイトルから出力ファイル名を作ります。使えない文字は除去し、空なら screenshots.pdf です。
func PDFFileName(title string) string {
	name := sanitizeFileName(title)
	if name == "" {
		return "screenshots.pdf"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
