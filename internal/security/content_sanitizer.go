// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は講座説明文のHTMLと問い合わせメッセージを
// サニタイズし、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// 講座カタログは外部のカタログ管理側で編集されるため、
// 説明文HTMLは信頼できない入力としてAPI応答前に必ずサニタイズする。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はコンテンツのサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// SanitizeHTML は講座説明文のHTMLをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, a, ul, ol, li, blockquote, pre, code, strong, em）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeHTML(rawHTML string) string

	// SanitizeText は問い合わせメッセージ等のプレーンテキスト入力から
	// すべてのHTMLタグを除去する。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	htmlPolicy *bluemonday.Policy
	textPolicy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// ポリシーの内容:
//   - 講座説明文: p, br, a, ul, ol, li, blockquote, pre, code, strong, em を許可
//   - 問い合わせメッセージ: 全タグ除去（StrictPolicy）
//   - script, iframe, style および全てのon*イベント属性は常に除去される
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	// 許可タグの設定（属性なしのシンプルなタグ）
	// script, iframe, style等は許可リストに含めないことで自動的に除去される
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	// aタグの設定:
	// - href属性を許可、相対URLは不許可
	// - target="_blank" と rel="noreferrer noopener" を強制付与
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AllowStandardURLs()

	return &contentSanitizer{
		htmlPolicy: p,
		textPolicy: bluemonday.StrictPolicy(),
	}
}

// SanitizeHTML は講座説明文のHTMLをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) SanitizeHTML(rawHTML string) string {
	return s.htmlPolicy.Sanitize(rawHTML)
}

// SanitizeText は入力からすべてのHTMLタグを除去する。
func (s *contentSanitizer) SanitizeText(raw string) string {
	return s.textPolicy.Sanitize(raw)
}
