// Package focus はトップレベルウィンドウの列挙と前面化、入力キューの結合を扱います。
// Windows 専用です。
package focus
