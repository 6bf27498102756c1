package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ScheduledShot/output"
)

var (
	pdfTitle string
	pdfOut   string
)

var pdfCmd = &cobra.Command{
	Use:   "pdf [dir]",
	Short: "保存したスクリーンショットを1つの PDF にまとめます",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		dir := a.settings.SavePath
		if len(args) == 1 {
			dir = args[0]
		}
		out := pdfOut
		if out == "" {
			out = filepath.Join(dir, output.PDFFileName(pdfTitle))
		}
		n, err := output.ImagesToPDF(dir, out, pdfTitle)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Printf("%s に画像がありません。\n", dir)
			return nil
		}
		fmt.Printf("完了: %d 枚の画像を %s に出力しました。\n", n, out)
		return nil
	},
}

func init() {
	pdfCmd.Flags().StringVar(&pdfTitle, "title", "", "PDF のタイトル（ファイル名にも使う）")
	pdfCmd.Flags().StringVarP(&pdfOut, "out", "o", "", "出力先の PDF ファイル")
	rootCmd.AddCommand(pdfCmd)
}
