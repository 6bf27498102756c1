// Package compare は画像ファイルの内容ダイジェストを扱います。
package compare

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Digest はエンコード済みデータの SHA-256 を返します。
func Digest(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// HashFromReader は読み込んだデータの SHA-256 を返します（保存前のバイト列と一致させる用）。
func HashFromReader(r io.Reader) ([]byte, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// HashFile はファイル内容の SHA-256 を返します。
func HashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return HashFromReader(f)
}

// Same は2つのダイジェストが一致するか返します。どちらかが nil なら false です。
func Same(a, b []byte) bool {
	if a == nil || b == nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Hex はダイジェストを16進文字列にします。
func Hex(d []byte) string {
	return hex.EncodeToString(d)
}
