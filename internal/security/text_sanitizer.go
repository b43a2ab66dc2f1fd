// Package security はユーザー入力の無害化を提供する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキストとして保存するフィールドからマークアップを取り除く。
// bluemondayのStrictPolicyで全タグを除去したうえで、エスケープされた文字実体を元に戻す。
// 実体を戻した結果が新たなタグになる入力もあるため、出力が変わらなくなるまで繰り返す。
// script・styleの中身はテキストとしても残さない。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Text はrawからタグを除去し、前後の空白を詰めた文字列を返す。
// 出力をもう一度Textに通しても変わらない。
func (s *TextSanitizer) Text(raw string) string {
	cur := raw
	for cur != "" {
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(cur)))
		if next == cur {
			break
		}
		cur = next
	}
	return cur
}
